// ABOUTME: Entry point for sitever-check, the client-side update monitor
// ABOUTME: Watches a site for new versions, prompts, purges caches and reloads

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/sitever/internal/assetcache"
	"github.com/2389/sitever/internal/client"
	"github.com/2389/sitever/internal/clientstate"
	"github.com/2389/sitever/internal/config"
	"github.com/2389/sitever/internal/logging"
	"github.com/2389/sitever/internal/monitor"
	"github.com/2389/sitever/internal/worker"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the client config file.
// Priority: SITEVER_CHECK_CONFIG env var > XDG_CONFIG_HOME/sitever/check.toml > ~/.config/sitever/check.toml
func getConfigPath() string {
	if envPath := os.Getenv("SITEVER_CHECK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "check.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sitever", "check.toml")
}

func usage() {
	fmt.Println("Usage: sitever-check <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run        Watch the site; reloads start a new session (default)")
	fmt.Println("  check      Run a single session and exit")
	fmt.Println("  status     Show the published and stored versions")
	fmt.Println("  changelog  Show the published changelog")
	fmt.Println("  init       Create a new config file interactively")
	fmt.Println("  version    Show the sitever-check version")
}

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd {
	case "run":
		err = runMonitor(ctx, false)
	case "check":
		err = runMonitor(ctx, true)
	case "status":
		err = runStatus(ctx, os.Stdout)
	case "changelog":
		err = runChangelog(ctx, os.Stdout)
	case "init":
		err = runInit(os.Stdin, os.Stdout)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.ClientConfig, error) {
	path := getConfigPath()
	cfg, err := config.LoadClient(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w (run 'sitever-check init' to create one)", path, err)
	}
	return cfg, nil
}

func runMonitor(ctx context.Context, once bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	hc := &http.Client{Timeout: client.DefaultTimeout}
	r, err := newRunner(ctx, cfg, hc, os.Stdin, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	logger.Info("watching for updates",
		"api_endpoint", cfg.Monitor.APIEndpoint,
		"page", r.page.url,
		"notifications", cfg.Monitor.Notify(),
	)
	return r.run(ctx, once)
}

func runStatus(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	api, err := client.New(cfg.Monitor.APIEndpoint)
	if err != nil {
		return err
	}
	pageURL := cfg.Page.URL
	if pageURL == "" {
		pageURL = api.Origin() + "/"
	}
	origin, err := clientstate.OriginOf(pageURL)
	if err != nil {
		return fmt.Errorf("page url: %w", err)
	}

	db, err := clientstate.Open(cfg.Storage.StatePath)
	if err != nil {
		return fmt.Errorf("opening client state: %w", err)
	}
	defer db.Close()

	values, err := db.Origin(origin).All(ctx)
	if err != nil {
		return err
	}
	workers, err := worker.NewRegistry(db, origin, nil, nil).List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Origin:\t%s\n", origin)
	if info, err := api.GetVersion(ctx); err != nil {
		fmt.Fprintf(w, "Published:\t%s\n", color.RedString("unavailable (%v)", err))
	} else {
		fmt.Fprintf(w, "Published:\t%s (released %s)\n", info.Version, info.ReleaseDate)
	}
	stored := values[monitor.KeyAppVersion]
	if stored == "" {
		stored = monitor.DefaultVersion + " (default)"
	}
	fmt.Fprintf(w, "Stored:\t%s\n", stored)
	if last := values[monitor.KeyLastUpdateCheck]; last != "" {
		if t, err := time.Parse(time.RFC3339, last); err == nil {
			last = fmt.Sprintf("%s (%s ago)", last, time.Since(t).Round(time.Second))
		}
		fmt.Fprintf(w, "Last update:\t%s\n", last)
	}
	for _, reg := range workers {
		digest := reg.Digest()
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(w, "Worker %s:\t%s %s\n", reg.Scope(), reg.ScriptURL(), digest)
	}
	if cfg.Storage.CacheDir != "" {
		caches, err := assetcache.New(cfg.Storage.CacheDir)
		if err != nil {
			return err
		}
		names, err := caches.Keys(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Caches:\t%s %v\n", caches.Root(), names)
	}
	return w.Flush()
}

func runChangelog(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := client.New(cfg.Monitor.APIEndpoint)
	if err != nil {
		return err
	}
	entries, err := api.GetChangelog(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No releases recorded yet.")
		return nil
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		bold.Fprintf(out, "%s", e.Version)
		gray.Fprintf(out, " [%s] %s\n", e.Type, e.Date)
		fmt.Fprintf(out, "  %s\n", e.Description)
		for _, c := range e.Changes {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}
	return nil
}
