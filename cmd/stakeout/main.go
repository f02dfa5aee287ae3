// Package main provides the stakeout command: a headless driver that opens
// a session, navigates, waits for network stability, and captures artifacts.
// It exercises the same session manager that test harnesses embed.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/stakeout/pkg/browser"
	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	URL         string
	Stake       string
	Screenshot  string
	Selector    string
	Wait        time.Duration
	ShowVersion bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("stakeout v%s\n", version)
		return
	}
	if cli.URL == "" {
		fmt.Fprintln(os.Stderr, errStyle.Render("a target URL is required (-url)"))
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("stakeout: "+err.Error()))
		os.Exit(1)
	}
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (JSON), defaults to ~/.stakeout/config.json")
	flag.StringVar(&cli.URL, "url", "", "Target URL to open")
	flag.StringVar(&cli.Stake, "stake", "", "Session stake key (empty selects the default session)")
	flag.StringVar(&cli.Screenshot, "screenshot", "page", "Screenshot name, empty to skip capture")
	flag.StringVar(&cli.Selector, "selector", "", "Optional selector for a bounding-box screenshot")
	flag.DurationVar(&cli.Wait, "wait", 0, "Override the page-load wait ceiling")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "stakeout - browser session driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stakeout [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Open a page and capture it\n")
		fmt.Fprintf(os.Stderr, "  stakeout -url https://example.com\n\n")
		fmt.Fprintf(os.Stderr, "  # Capture a specific element with its bounding box\n")
		fmt.Fprintf(os.Stderr, "  stakeout -url https://example.com -selector \"#login\"\n\n")
	}

	flag.Parse()
	return cli
}

func run(cli *CLIConfig) error {
	settings, err := config.Load(cli.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	manager := browser.NewManager(settings)
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer manager.Shutdown()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		manager.Shutdown()
		os.Exit(130)
	}()

	start := time.Now()
	if err := manager.Navigate(cli.Stake, cli.URL); err != nil {
		return err
	}
	manager.WaitForPageLoad(cli.Stake, cli.Wait)

	if cli.Screenshot != "" {
		if err := manager.TakeScreenshot(cli.Stake, cli.Screenshot, browser.ScreenshotOptions{
			FullPage:         true,
			IncludeTimestamp: true,
		}); err != nil {
			return err
		}
	}
	if cli.Selector != "" {
		if err := manager.CaptureElementBoundingBoxScreenshot(cli.Stake, cli.Selector, cli.Screenshot+"_element"); err != nil {
			return err
		}
	}

	printSummary(manager, cli, time.Since(start))
	return nil
}

// printSummary renders the run outcome: target, session, artifact inventory,
// and where the run log landed.
func printSummary(manager *browser.Manager, cli *CLIConfig, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(titleStyle.Render("stakeout run complete"))

	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
	}
	row("url", cli.URL)
	row("elapsed", elapsed.Round(time.Millisecond).String())
	row("sessions", fmt.Sprintf("%v", manager.Stakes()))

	artifacts, err := manager.Artifacts(cli.Stake)
	if err == nil {
		row("screenshots", fmt.Sprintf("%d", artifacts.ScreenshotCount))
		if artifacts.LastScreenshot != "" {
			row("last capture", artifacts.LastScreenshot)
		}
		if artifacts.LastVideo != "" {
			row("video", artifacts.LastVideo)
		}
		if artifacts.LastTrace != "" {
			row("trace", artifacts.LastTrace)
		}
	}
	row("run id", logging.RunID())
}
