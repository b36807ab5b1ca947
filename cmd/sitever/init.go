// ABOUTME: Interactive setup for the sitever server config and initial version record
// ABOUTME: Writes a YAML config and seeds the store when it has no record yet

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2389/sitever/internal/semver"
	"github.com/2389/sitever/internal/versionstore"
)

type initAnswers struct {
	HTTPAddr       string
	StaticDir      string
	StoreDriver    string
	StorePath      string
	StoreWatch     bool
	InitialVersion string
	Tailscale      bool
	TSHostname     string
	TSAuthKey      string
	TSEphemeral    bool
	TSFunnel       bool
	LogLevel       string
	LogFormat      string
}

func runInit(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "sitever configuration setup")
	fmt.Fprintln(out, "===========================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var a initAnswers

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, out, "HTTP address", "localhost:3000")
	a.StaticDir = prompt(reader, out, "Static site directory (empty to disable)", "public")

	fmt.Fprintln(out, "\n--- Version Store ---")
	a.StoreDriver = prompt(reader, out, "Store driver (file/sqlite)", versionstore.DriverFile)
	defaultPath := filepath.Join(a.StaticDir, "version.json")
	if a.StoreDriver == versionstore.DriverSQLite {
		defaultPath = "sitever.db"
	}
	a.StorePath = prompt(reader, out, "Store path", defaultPath)
	if a.StoreDriver == versionstore.DriverFile {
		a.StoreWatch = yes(prompt(reader, out, "Cache the record and reload on change?", "yes"))
	}
	a.InitialVersion = prompt(reader, out, "Initial version (if none exists)", "1.0.0")

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	a.Tailscale = yes(prompt(reader, out, "Enable Tailscale?", "no"))
	if a.Tailscale {
		a.TSHostname = prompt(reader, out, "Tailscale hostname", "sitever")
		a.TSAuthKey = prompt(reader, out, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TSEphemeral = yes(prompt(reader, out, "Ephemeral node?", "no"))
		a.TSFunnel = yes(prompt(reader, out, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, out, "Log format (text/json)", "text")

	if err := writeFile(outputFile, renderServerConfig(a)); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)

	seeded, err := seedStore(ctx, a, time.Now())
	if err != nil {
		return err
	}
	if seeded {
		fmt.Fprintf(out, "Version record created at %s (%s)\n", a.StorePath, a.InitialVersion)
	} else {
		fmt.Fprintf(out, "Existing version record kept at %s\n", a.StorePath)
	}

	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  sitever serve")
	return nil
}

func renderServerConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# sitever configuration\n")
	cfg.WriteString("# Generated by sitever init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", a.HTTPAddr))
	cfg.WriteString("\n")

	cfg.WriteString("# Where the published version record lives.\n")
	cfg.WriteString("# driver: file keeps version.json next to the site; sqlite keeps it in a database.\n")
	cfg.WriteString("store:\n")
	cfg.WriteString(fmt.Sprintf("  driver: \"%s\"\n", a.StoreDriver))
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", a.StorePath))
	if a.StoreDriver == versionstore.DriverFile {
		cfg.WriteString(fmt.Sprintf("  watch: %t\n", a.StoreWatch))
	}
	cfg.WriteString("\n")

	cfg.WriteString("site:\n")
	cfg.WriteString(fmt.Sprintf("  static_dir: \"%s\"\n", a.StaticDir))
	cfg.WriteString("\n")

	cfg.WriteString("# Origins allowed to call the API from a browser.\n")
	cfg.WriteString("# Leave unset to allow the local development servers on ports 3000, 3001 and 5500-5502.\n")
	cfg.WriteString("# cors:\n")
	cfg.WriteString("#   allowed_origins:\n")
	cfg.WriteString("#     - \"https://www.example.com\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.Tailscale))
	if a.Tailscale {
		cfg.WriteString(fmt.Sprintf("  hostname: \"%s\"\n", a.TSHostname))
		if a.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: \"%s\"\n", a.TSAuthKey))
		} else {
			cfg.WriteString("  auth_key: \"${TS_AUTHKEY}\"\n")
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", a.TSEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", a.TSFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", a.LogFormat))
	return cfg.String()
}

// seedStore writes an initial record when the store has none. It reports
// whether a record was written.
func seedStore(ctx context.Context, a initAnswers, now time.Time) (bool, error) {
	store, err := versionstore.Open(a.StoreDriver, a.StorePath, false, nil)
	if err != nil {
		return false, fmt.Errorf("opening version store: %w", err)
	}
	defer store.Close()

	_, err = store.Load(ctx)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, versionstore.ErrUnavailable):
		return false, err
	}
	if a.StoreDriver != versionstore.DriverSQLite {
		if _, statErr := os.Stat(a.StorePath); statErr == nil {
			return false, fmt.Errorf("existing version record at %s is unreadable: %w", a.StorePath, err)
		}
	}

	initial := semver.Parse(a.InitialVersion).String()
	if err := store.Save(ctx, versionstore.NewRecord(initial, now)); err != nil {
		return false, fmt.Errorf("writing initial version: %w", err)
	}
	return true, nil
}

func yes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}
