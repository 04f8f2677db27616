package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pagewise/internal/config"
	"pagewise/internal/ui"
)

// options are the flags shared by every command
type options struct {
	configPath  string
	verbose     bool
	backend     string
	channelURL  string
	legacy      bool
	noWatch     bool
	noAltScreen bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pagewise [file]",
		Short: "Page through PDF and text documents in the terminal",
		Long: `Page through PDF and text documents in the terminal.

Controls:
  →/l, ←/h  - Next / previous page
  g, G      - First / last page
  +, -      - Zoom in / out
  /         - Search (n/N next/prev, esc clears)
  o         - Open the page in the pager
  ?         - Toggle help
  q         - Quit`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewer(cmd, opts, args)
		},
	}

	bindFlags(root, opts)
	root.AddCommand(newRelayCmd(opts), newSurfaceCmd(opts))
	return root
}

// bindFlags registers the shared flags on cmd and its subcommands
func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every bus event")
	flags.StringVar(&opts.backend, "backend", "", "search backend: channel, direct or scan")
	flags.StringVar(&opts.channelURL, "channel-url", "", "relay URL; the search engine runs in a separate surface process")
	flags.BoolVar(&opts.legacy, "legacy-topics", false, "also accept the pdf-* search topics")
	flags.BoolVar(&opts.noWatch, "no-watch", false, "do not reload the document when it changes")
	flags.BoolVar(&opts.noAltScreen, "no-alt-screen", false, "render inline instead of on the alternate screen")
}

// loadConfig reads the config file and applies the flags the user set
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	svc := config.NewConfigService()
	if opts.configPath != "" {
		svc = config.NewConfigServiceAt(opts.configPath)
	}
	cfg, err := svc.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Log.Verbose = opts.verbose
	}
	if flags.Changed("backend") {
		cfg.Search.Backend = opts.backend
	}
	if flags.Changed("channel-url") {
		cfg.Channel.URL = opts.channelURL
	}
	if flags.Changed("legacy-topics") {
		cfg.Search.Legacy = opts.legacy
	}
	if opts.noWatch {
		cfg.Watch.Enabled = false
	}
	if opts.noAltScreen {
		cfg.Viewer.AltScreen = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging sends the standard logger to path; an empty path discards it
// so nothing is written over the UI
func setupLogging(path string) func() {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Could not open log file: %v", err)
		log.SetOutput(io.Discard)
		return func() {}
	}
	log.SetOutput(logFile)
	return func() { logFile.Close() }
}

func runViewer(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	closeLog := setupLogging(cfg.Log.File)
	defer closeLog()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.start()

	model := ui.NewModel(a.bus, cfg, a.engine)
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Viewer.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(model, programOpts...)
	model.SetProgram(p)

	// Start forwarding events to UI in background
	forwarder := ui.NewForwarder(a.bus, 100)
	go forwarder.Run(p)
	defer forwarder.Stop()

	if len(args) > 0 {
		if err := a.open(ctx, args[0]); err != nil {
			return err
		}
	}

	log.Printf("Starting UI...")
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Printf("Error running program: %v", err)
		return fmt.Errorf("error running program: %w", err)
	}
	log.Printf("UI exited normally")
	return nil
}
