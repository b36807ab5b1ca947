// ABOUTME: Entry point for the sitever site version server and release tool
// ABOUTME: Serves the version API and bumps the published version

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/sitever/internal/config"
	"github.com/2389/sitever/internal/logging"
	"github.com/2389/sitever/internal/server"
	"github.com/2389/sitever/internal/versionstore"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
      _ _
  ___(_) |_ _____   _____ _ __
 / __| | __/ _ \ \ / / _ \ '__|
 \__ \ | ||  __/\ V /  __/ |
 |___/_|\__\___| \_/ \___|_|
`

// getConfigPath returns the path to the server config file.
// Priority: SITEVER_CONFIG env var > XDG_CONFIG_HOME/sitever/server.yaml > ~/.config/sitever/server.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SITEVER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "server.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sitever", "server.yaml")
}

func usage() {
	fmt.Println("Usage: sitever <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                                  Start the version server")
	fmt.Println("  init                                   Create a new config file interactively")
	fmt.Println("  bump [major|minor|patch] [description] Publish a new version (menu when no type is given)")
	fmt.Println("  version                                Show the published version")
	fmt.Println("  changelog                              Show the changelog")
	fmt.Println("  health                                 Check server health")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(ctx, os.Stdin, os.Stdout)
	case "bump":
		err = runBump(ctx, os.Args[2:], os.Stdin, os.Stdout)
	case "version":
		err = runVersion(ctx, os.Stdout)
	case "changelog":
		err = runChangelog(ctx, os.Stdout)
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Store:     %s (%s)\n", cfg.Store.Path, cfg.Store.Driver)
	if cfg.Site.StaticDir != "" {
		green.Print("    ▶ ")
		fmt.Printf("Site:      %s\n", cfg.Site.StaticDir)
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}

	fmt.Println()

	logger.Info("starting sitever",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"store_driver", cfg.Store.Driver,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

// openStore loads the config and opens its version store.
func openStore() (versionstore.Store, *config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	store, err := versionstore.Open(cfg.Store.Driver, cfg.Store.Path, false, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening version store: %w", err)
	}
	return store, cfg, nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
