// ABOUTME: Interactive setup for the sitever-check client config
// ABOUTME: Writes a commented TOML file with the monitor, page and storage settings

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type clientAnswers struct {
	APIEndpoint      string
	PageURL          string
	WorkerScript     string
	ShowNotification bool
	AutoReloadDelay  string
	ShowDelay        string
	StatePath        string
	CacheDir         string
	LogLevel         string
}

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "sitever-check configuration setup")
	fmt.Fprintln(out, "=================================")
	fmt.Fprintln(out)

	outputFile := ask(reader, out, "Config file path", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(ask(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	dataDir := defaultDataDir()

	var a clientAnswers
	fmt.Fprintln(out, "\n--- Monitor ---")
	a.APIEndpoint = ask(reader, out, "Version check endpoint", "http://localhost:3000/api/version/check")
	a.ShowNotification = yes(ask(reader, out, "Show update prompt?", "yes"))
	a.AutoReloadDelay = ask(reader, out, "Auto reload delay", "10s")
	a.ShowDelay = ask(reader, out, "Prompt show delay", "500ms")

	fmt.Fprintln(out, "\n--- Page ---")
	a.PageURL = ask(reader, out, "Page URL (empty for the endpoint's origin)", "")
	a.WorkerScript = ask(reader, out, "Worker script (empty to disable)", "/sw.js")

	fmt.Fprintln(out, "\n--- Storage ---")
	a.StatePath = ask(reader, out, "State database", filepath.Join(dataDir, "check.db"))
	a.CacheDir = ask(reader, out, "Asset cache directory", filepath.Join(dataDir, "cache"))

	fmt.Fprintln(out, "\n--- Logging ---")
	a.LogLevel = ask(reader, out, "Log level (debug/info/warn/error)", "info")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(renderClientConfig(a)), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start watching:")
	fmt.Fprintln(out, "  sitever-check run")
	return nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "sitever")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "sitever")
}

func renderClientConfig(a clientAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# sitever-check configuration\n")
	cfg.WriteString("# Generated by sitever-check init\n\n")

	cfg.WriteString("[monitor]\n")
	cfg.WriteString(fmt.Sprintf("api_endpoint = %q\n", a.APIEndpoint))
	cfg.WriteString(fmt.Sprintf("show_notification = %t\n", a.ShowNotification))
	cfg.WriteString("# How long the prompt waits before reloading on its own.\n")
	cfg.WriteString(fmt.Sprintf("auto_reload_delay = %q\n", a.AutoReloadDelay))
	cfg.WriteString(fmt.Sprintf("show_delay = %q\n", a.ShowDelay))
	cfg.WriteString("debug = false\n\n")

	cfg.WriteString("[page]\n")
	if a.PageURL != "" {
		cfg.WriteString(fmt.Sprintf("url = %q\n", a.PageURL))
	} else {
		cfg.WriteString("# url = \"https://www.example.com/\"\n")
	}
	cfg.WriteString(fmt.Sprintf("worker_script = %q\n\n", a.WorkerScript))

	cfg.WriteString("[storage]\n")
	cfg.WriteString(fmt.Sprintf("state_path = %q\n", a.StatePath))
	cfg.WriteString(fmt.Sprintf("cache_dir = %q\n\n", a.CacheDir))

	cfg.WriteString("[logging]\n")
	cfg.WriteString(fmt.Sprintf("level = %q\n", a.LogLevel))
	cfg.WriteString("format = \"text\"\n")
	return cfg.String()
}

func yes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "yes" || a == "y"
}

func ask(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
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
