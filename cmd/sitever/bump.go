// ABOUTME: Release commands: bump the published version, show it, show the changelog
// ABOUTME: bump takes the kind as an argument or asks for it with a numbered menu

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/sitever/internal/semver"
	"github.com/2389/sitever/internal/versionstore"
)

// errAborted is returned when the user leaves the bump menu.
var errAborted = errors.New("aborted")

func runBump(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	err = bump(ctx, store, args, in, out, time.Now())
	if errors.Is(err, errAborted) {
		return nil
	}
	return err
}

// bump publishes the next version. With no args the kind and description
// are read interactively from in.
func bump(ctx context.Context, store versionstore.Store, args []string, in io.Reader, out io.Writer, now time.Time) error {
	var (
		kind        semver.Kind
		description string
		err         error
	)

	if len(args) > 0 {
		kind, err = semver.ParseKind(args[0])
		if err != nil {
			return fmt.Errorf("%w (use major, minor or patch)", err)
		}
		description = strings.Join(args[1:], " ")
	} else {
		kind, description, err = bumpMenu(ctx, store, in, out)
		if err != nil {
			return err
		}
	}

	res, err := versionstore.Bump(ctx, store, kind, description, now)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprint(out, "✓ ")
	fmt.Fprintf(out, "Version updated: %s → %s\n", res.Previous, res.Record.Version)
	if d := strings.TrimSpace(description); d != "" {
		green.Fprint(out, "✓ ")
		fmt.Fprintf(out, "Description: %s\n", d)
	}
	green.Fprint(out, "✓ ")
	fmt.Fprintf(out, "Date: %s\n", res.Record.ReleaseDate)
	return nil
}

// menuChoices maps menu answers to bump kinds. "4" exits.
var menuChoices = map[string]semver.Kind{
	"1": semver.KindPatch,
	"2": semver.KindMinor,
	"3": semver.KindMajor,
}

func bumpMenu(ctx context.Context, store versionstore.Store, in io.Reader, out io.Writer) (semver.Kind, string, error) {
	rec, err := store.Load(ctx)
	if err != nil {
		return "", "", err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(out, "\n═════════════════════════════════════════")
	cyan.Fprintln(out, "    RELEASE VERSION")
	cyan.Fprintln(out, "═════════════════════════════════════════")
	fmt.Fprintf(out, "Current version: %s\n\n", rec.Version)
	fmt.Fprintln(out, "Select the kind of release:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "1) Patch  - Bug fixes (x.x.X)")
	fmt.Fprintln(out, "2) Minor  - New features (x.X.0)")
	fmt.Fprintln(out, "3) Major  - Breaking changes (X.0.0)")
	fmt.Fprintln(out, "4) Exit")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	answer := prompt(reader, out, "Choose an option (1-4)", "")
	if answer == "4" {
		return "", "", errAborted
	}
	kind, ok := menuChoices[answer]
	if !ok {
		return "", "", fmt.Errorf("invalid option %q", answer)
	}

	description := prompt(reader, out, "Change description (optional)", "")
	return kind, description, nil
}

func runVersion(ctx context.Context, out io.Writer) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (released %s)\n", rec.Version, rec.ReleaseDate)
	return nil
}

func runChangelog(ctx context.Context, out io.Writer) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Load(ctx)
	if err != nil {
		return err
	}
	printChangelog(out, rec.Changelog)
	return nil
}

func printChangelog(out io.Writer, entries []versionstore.ChangelogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No releases recorded yet.")
		return
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)
	kindColors := map[semver.Kind]*color.Color{
		semver.KindMajor: color.New(color.FgRed),
		semver.KindMinor: color.New(color.FgCyan),
		semver.KindPatch: color.New(color.FgGreen),
	}

	for _, e := range entries {
		bold.Fprint(out, e.Version)
		fmt.Fprint(out, " ")
		if c, ok := kindColors[e.Type]; ok {
			c.Fprintf(out, "[%s]", e.Type)
		} else {
			fmt.Fprintf(out, "[%s]", e.Type)
		}
		gray.Fprintf(out, " %s\n", e.Date)
		fmt.Fprintf(out, "  %s\n", e.Description)
		for _, c := range e.Changes {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}
}
