// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"ferret-risk/internal/config"
	"ferret-risk/internal/core"
	"ferret-risk/internal/detector"
	"ferret-risk/internal/help"
	"ferret-risk/internal/matcher"
	"ferret-risk/internal/observability"
	"ferret-risk/internal/version"
	"ferret-risk/internal/web"

	"ferret-risk/internal/formatters"
	_ "ferret-risk/internal/formatters/csv"
	_ "ferret-risk/internal/formatters/json"
	_ "ferret-risk/internal/formatters/text"
	_ "ferret-risk/internal/formatters/yaml"
)

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	// If config file is not specified, try to find one in standard locations
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg = config.Default()
	}
	return cfg
}

// configFlags holds command line flag values
type configFlags struct {
	outputFormat string
	rules        string
	labels       string
	nerURL       string
	verbose      bool
	showMatch    bool
	debug        bool
	noColor      bool
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format    string
	rules     []string
	labels    map[detector.Label]bool
	nerURL    string
	verbose   bool
	showMatch bool
	debug     bool
	noColor   bool
}

// resolveConfiguration resolves final configuration values from the config
// file (with any profile already applied) and command line flags. isSet
// reports whether a flag was given explicitly.
func resolveConfiguration(cfg *config.Config, flags *configFlags, isSet func(string) bool) *finalConfiguration {
	final := &finalConfiguration{
		format:  cfg.Defaults.Format,
		debug:   cfg.Defaults.Debug,
		noColor: cfg.Defaults.NoColor,
		nerURL:  cfg.NER.URL,
	}
	if final.format == "" {
		final.format = "text"
	}
	if isSet("format") && flags.outputFormat != "" {
		final.format = strings.ToLower(flags.outputFormat)
	}

	rules := cfg.Defaults.Rules
	if isSet("rules") {
		rules = flags.rules
	}
	final.rules = config.SplitList(rules)

	labels := cfg.Defaults.Labels
	if isSet("labels") {
		labels = flags.labels
	}
	final.labels = detector.ParseLabels(labels)

	if isSet("ner-url") {
		final.nerURL = flags.nerURL
	}
	if isSet("debug") {
		final.debug = flags.debug
	}
	if isSet("no-color") {
		final.noColor = flags.noColor
	}
	final.verbose = flags.verbose
	final.showMatch = flags.showMatch

	return final
}

// handleProfiles lists profiles or applies the named one. It reports
// whether the program should exit after listing.
func handleProfiles(cfg *config.Config, listProfiles bool, profileName string) (bool, error) {
	if listProfiles {
		profiles := cfg.ListProfiles()
		if len(profiles) == 0 {
			fmt.Println("No profiles defined in configuration file.")
			return true, nil
		}
		fmt.Println("Available profiles:")
		for _, name := range profiles {
			profile := cfg.GetProfile(name)
			if profile != nil && profile.Description != "" {
				fmt.Printf("  - %s: %s\n", name, profile.Description)
			} else {
				fmt.Printf("  - %s\n", name)
			}
		}
		return true, nil
	}

	if profileName != "" {
		if err := cfg.ApplyProfile(profileName); err != nil {
			return false, fmt.Errorf("%w\nCheck available profiles with --list-profiles", err)
		}
	}
	return false, nil
}

// readRawInput loads detector output saved by --save-raw or produced by
// another pipeline.
func readRawInput(path string) (core.Raw, error) {
	var raw core.Raw
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return raw, fmt.Errorf("failed to read input file: %w", err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}
	if raw.Document.Name == "" {
		raw.Document.Name = filepath.Base(path)
	}
	return raw, nil
}

// writeOutput writes content to path, or stdout when path is empty.
func writeOutput(path, content string) error {
	if path == "" {
		fmt.Println(content)
		return nil
	}
	cleanOutputPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanOutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(cleanOutputPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func writeRaw(path string, raw core.Raw) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode raw output: %w", err)
	}
	return writeOutput(path, string(data))
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	os.Exit(run())
}

func run() int {
	inputFile := flag.String("file", "", "Path to the document to scan")
	rawInput := flag.String("input", "", "Path to a JSON file of raw detector output (skips detection)")
	saveRaw := flag.String("save-raw", "", "Write raw detector output as JSON to this path")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	outputFormat := flag.String("format", "", "Output format: text, json, yaml, csv (default: text)")
	rules := flag.String("rules", "", "Pattern rules to run, comma separated (default: all)")
	labels := flag.String("labels", "", "Entity labels to count, comma separated, or none (default: PS,LC,OG)")
	nerURL := flag.String("ner-url", "", "Entity recognizer base URL")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	verbose := flag.Bool("verbose", false, "Include the reconciled entity list")
	showMatch := flag.Bool("show-match", false, "Display entity text in the output")
	debug := flag.Bool("debug", false, "Log pipeline stage timings to stderr")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showHelp := flag.Bool("help", false, "Show help information")
	showVersion := flag.Bool("version", false, "Show version information")
	webMode := flag.Bool("web", false, "Start the HTTP API instead of scanning")
	webPort := flag.String("port", "", "Port for the HTTP API (default: 8080)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return 0
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg := loadConfiguration(*configFile)
	config.ApplyEnv(cfg)

	if *showHelp {
		helpSystem := help.NewSystem(os.Stdout, *noColor || !isTerminal(os.Stdout))
		if flag.Arg(0) == "rules" {
			helpSystem.ShowRulesHelp(matcher.MergeRules(matcher.DefaultRules(), cfg.Matcher.Rules), cfg.RiskWeights())
		} else {
			helpSystem.ShowGeneralHelp()
		}
		return 0
	}

	exit, err := handleProfiles(cfg, *listProfiles, *profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if exit {
		return 0
	}

	final := resolveConfiguration(cfg, &configFlags{
		outputFormat: *outputFormat,
		rules:        *rules,
		labels:       *labels,
		nerURL:       *nerURL,
		verbose:      *verbose,
		showMatch:    *showMatch,
		debug:        *debug,
		noColor:      *noColor,
	}, isFlagSet)
	cfg.NER.URL = final.nerURL
	if *outputFile != "" || !isTerminal(os.Stdout) {
		final.noColor = true
	}

	logger := newLogger(final.debug)
	slog.SetDefault(logger)

	level := observability.ObservabilityOff
	if final.debug {
		level = observability.ObservabilityDebug
	}
	scanner, err := core.BuildScanner(cfg, observability.NewStandardObserver(level, os.Stderr), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *webMode {
		if *inputFile != "" || *rawInput != "" {
			fmt.Fprintln(os.Stderr, "Error: --web cannot be combined with --file or --input")
			return 1
		}
		port := *webPort
		if port == "" {
			port = strconv.Itoa(cfg.Defaults.Port)
		}
		if _, err := validatePort(port); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := web.NewWebServer(port, scanner, cfg, logger).Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if _, ok := formatters.Get(final.format); !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported format '%s'. Available formats: %s\n", final.format, strings.Join(formatters.List(), ", "))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var result *core.ScanResult
	switch {
	case *rawInput != "":
		raw, err := readRawInput(*rawInput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		var labelSet map[detector.Label]bool
		if isFlagSet("labels") || raw.Labels == nil {
			labelSet = final.labels
		}
		result = scanner.Rebuild(raw, labelSet)
	case *inputFile != "":
		result, err = scanner.ScanFile(ctx, core.ScanConfig{
			FilePath: *inputFile,
			Rules:    final.rules,
			Labels:   final.labels,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintln(os.Stderr, "Error: --file or --input is required (see --help)")
		return 1
	}

	if *saveRaw != "" {
		if err := writeRaw(*saveRaw, result.Raw); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	content, err := formatters.Export(final.format, result.Result, formatters.FormatterOptions{
		Verbose:   final.verbose,
		NoColor:   final.noColor,
		ShowMatch: final.showMatch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := writeOutput(*outputFile, content); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// isFlagSet reports whether the named flag was given on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// validatePort validates that the port string is a valid port number
func validatePort(portStr string) (string, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port format '%s': must be a number", portStr)
	}

	if port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}

	return portStr, nil
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
