package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-fetchassets/pkg/archive"
	"github.com/go-fetchassets/pkg/config"
	"github.com/go-fetchassets/pkg/download"
	"github.com/go-fetchassets/pkg/manager"
	"github.com/go-fetchassets/pkg/utils"
)

// errReported signals a failure that was already written to the log
var errReported = errors.New("fetch-assets failed")

// booleanFlags may be given as "--flag false" on the command line
var booleanFlags = map[string]struct{}{
	"overwrite":            {},
	"delete-after-extract": {},
	"debug":                {},
	"verbose":              {},
	"retain-log-files":     {},
	"follow-redirects":     {},
	"progress":             {},
}

type options struct {
	configPath string

	url                string
	destination        string
	hash               string
	outputDir          string
	overwrite          bool
	deleteAfterExtract bool

	debug          bool
	verbose        bool
	logFile        string
	retainLogFiles bool

	followRedirects  bool
	httpAuthUser     string
	httpAuthPassword string
	headers          utils.HeaderFlag
	timeout          time.Duration
	progress         bool
}

func main() {
	cmd := newRootCmd(newOptions())
	cmd.SetArgs(utils.NormalizeBooleanFlags(os.Args[1:], booleanFlags))

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newOptions() *options {
	return &options{headers: utils.HeaderFlag{Headers: map[string]string{}}}
}

func newRootCmd(opts *options) *cobra.Command {
	defaults := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "fetch-assets",
		Short: "Download, verify and extract the project asset archive",
		Long: `fetch-assets downloads the project's asset archive, checks its SHA-256
digest and extracts it into the project directory.

Settings come from compiled-in defaults, then a plist overlay
(./` + config.DefaultProfileName + ` or ~/.config/fetch-assets/config.plist, or --config),
then command line flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to a plist overlay (default: ./"+config.DefaultProfileName+", then ~/.config/fetch-assets/config.plist)")

	f.StringVar(&opts.url, "url", defaults.URL, "URL of the asset archive")
	f.StringVar(&opts.destination, "destination", defaults.Destination, "Where the downloaded archive is stored")
	f.StringVar(&opts.hash, "hash", defaults.ExpectedHash, "Expected SHA-256 of the archive (hex)")
	f.StringVar(&opts.outputDir, "output-dir", defaults.OutputDir, "Directory the archive is extracted into")
	f.BoolVar(&opts.overwrite, "overwrite", defaults.Overwrite, "Replace files that already exist in the output directory")
	f.BoolVar(&opts.deleteAfterExtract, "delete-after-extract", defaults.DeleteAfterExtract, "Delete the archive after a successful extraction")

	f.BoolVar(&opts.debug, "debug", defaults.Debug, "Enable debug logging")
	f.BoolVar(&opts.verbose, "verbose", defaults.Verbose, "Enable verbose logging")
	f.StringVar(&opts.logFile, "log-file", defaults.LogFilePath, "Also write logs to this file")
	f.BoolVar(&opts.retainLogFiles, "retain-log-files", defaults.RetainLogFiles, "Append to the log file instead of truncating it")

	f.BoolVar(&opts.followRedirects, "follow-redirects", defaults.FollowRedirects, "Follow HTTP redirects")
	f.StringVar(&opts.httpAuthUser, "http-auth-user", "", "HTTP Basic Auth username")
	f.StringVar(&opts.httpAuthPassword, "http-auth-password", "", "HTTP Basic Auth password")
	f.Var(&opts.headers, "header", "Extra request header in Name=Value form (repeatable)")
	f.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Overall download timeout (0 disables it)")
	f.BoolVar(&opts.progress, "progress", defaults.Progress, "Show a progress meter when stdout is a terminal")

	return cmd
}

// loadConfig layers defaults, the plist overlay and explicitly set flags
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, *config.ProfileResult, error) {
	cfg := config.NewConfig()

	profile, err := cfg.ReadFromProfile(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read configuration overlay: %w", err)
	}

	// Only flags given on the command line override the overlay
	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.URL = opts.url
	}
	if changed("destination") {
		cfg.Destination = opts.destination
	}
	if changed("hash") {
		cfg.ExpectedHash = opts.hash
	}
	if changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if changed("overwrite") {
		cfg.Overwrite = opts.overwrite
	}
	if changed("delete-after-extract") {
		cfg.DeleteAfterExtract = opts.deleteAfterExtract
	}
	if changed("debug") {
		cfg.Debug = opts.debug
	}
	if changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if changed("log-file") {
		cfg.LogFilePath = opts.logFile
	}
	if changed("retain-log-files") {
		cfg.RetainLogFiles = opts.retainLogFiles
	}
	if changed("follow-redirects") {
		cfg.FollowRedirects = opts.followRedirects
	}
	if changed("http-auth-user") {
		cfg.HTTPAuthUser = opts.httpAuthUser
	}
	if changed("http-auth-password") {
		cfg.HTTPAuthPassword = opts.httpAuthPassword
	}
	if changed("header") {
		if cfg.HTTPHeaders == nil {
			cfg.HTTPHeaders = map[string]string{}
		}
		for k, v := range opts.headers.Headers {
			cfg.HTTPHeaders[k] = v
		}
	}
	if changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if changed("progress") {
		cfg.Progress = opts.progress
	}

	return cfg, profile, nil
}

func newLogger(cfg *config.Config) *utils.Logger {
	if cfg.LogFilePath == "" {
		return utils.NewLogger(cfg.Debug, cfg.Verbose)
	}

	logger, err := utils.NewLoggerWithFile(cfg.Debug, cfg.Verbose, cfg.LogFilePath, cfg.RetainLogFiles)
	if err != nil {
		fmt.Printf("Warning: Failed to create file logger: %v\nUsing console-only logging\n", err)
		return utils.NewLogger(cfg.Debug, cfg.Verbose)
	}

	mode := "appending"
	if !cfg.RetainLogFiles {
		mode = "fresh"
	}
	fmt.Printf("Logging to: %s (and console, %s)\n", cfg.LogFilePath, mode)
	return logger
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, profile, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	defer logger.Close()

	if profile.ConfigFound {
		logger.Info("Starting fetch-assets (overlay: %s)", profile.Path)
		if len(profile.UnknownKeys) > 0 {
			logger.Warn("Ignoring unknown overlay keys: %v", profile.UnknownKeys)
		}
	} else {
		logger.Info("Starting fetch-assets (using defaults + command line)")
	}

	if cfg.Debug {
		if b, err := json.MarshalIndent(cfg.RedactedForLogging(), "", "  "); err == nil {
			logger.Debug("Final configuration:\n%s", string(b))
		} else {
			logger.Debug("Final configuration: %v", cfg.RedactedForLogging())
		}
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return errReported
	}
	asset, err := cfg.Asset()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		return errReported
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := download.NewClientWithAuth(logger, cfg.HTTPAuthUser, cfg.HTTPAuthPassword, cfg.HTTPHeaders)
	client.SetFollowRedirects(cfg.FollowRedirects)
	client.SetTimeout(cfg.Timeout)
	if cfg.Progress {
		client.SetProgressOutput(download.TerminalProgress(os.Stdout))
	}

	m := manager.NewManager(client, archive.NewSevenZip(logger), asset, logger)
	if err := m.Run(ctx); err != nil {
		logger.Error("%v", err)
		return errReported
	}
	return nil
}
