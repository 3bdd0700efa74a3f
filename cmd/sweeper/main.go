package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sweeper/internal/config"
	"sweeper/internal/confirm"
	"sweeper/internal/exitcodes"
	"sweeper/internal/logging"
	"sweeper/internal/metrics"
	"sweeper/internal/sweep"
	"sweeper/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	root := flag.String("root", "", "Directory to clean (default: current directory)")
	pat := flag.String("pattern", "", "File name pattern, e.g. '*.idl' or '.idl' (default: "+config.DefaultPattern+")")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt")
	dryRun := flag.Bool("dry-run", false, "List matching files without deleting them")
	maxDepth := flag.Int("max-depth", 0, "Maximum directory depth to descend (0 = unlimited)")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Load configuration. Only an explicitly named file must exist.
	cfg, err := config.Load(*configPath, !set["config"])
	if err != nil {
		ui.Error(os.Stderr, fmt.Errorf("load config: %w", err))
		return exitcodes.InvalidConfig
	}
	if set["root"] {
		cfg.Root = *root
	}
	if set["pattern"] {
		cfg.Pattern = *pat
	}
	if set["max-depth"] {
		cfg.MaxDepth = *maxDepth
	}
	if err := cfg.Validate(); err != nil {
		ui.Error(os.Stderr, fmt.Errorf("invalid config: %w", err))
		return exitcodes.InvalidConfig
	}

	logger, closeLog := logging.New(cfg)
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()
	logger.Debug("Configuration loaded", "config", *configPath, "root", cfg.Root, "pattern", cfg.Pattern)
	if *dryRun {
		logger.Info("DRY RUN MODE: No files will be deleted")
	}

	metrics.Init()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("Received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var confirmer confirm.Confirmer
	if *yes {
		confirmer = &confirm.Static{Answer: true}
	} else {
		term := confirm.NewTerminal(os.Stdin, os.Stdout)
		term.Style = ui.Prompt
		confirmer = term
	}

	s := sweep.New(confirmer, logger)
	// Opened by the sweeper once the run is confirmed
	s.SetHistoryPath(cfg.DatabasePath)

	res, err := s.Run(ctx, sweep.Options{
		Root:           cfg.Root,
		Pattern:        cfg.Pattern,
		MaxDepth:       cfg.MaxDepth,
		DryRun:         *dryRun,
		ProtectedPaths: cfg.ProtectedPaths,
	})
	if err != nil {
		ui.Error(os.Stderr, err)
		return exitCodeFor(err)
	}

	ui.Summary(os.Stdout, res)

	code := exitCodeForState(res.State)
	if !res.Confirmed {
		// A declined run leaves the filesystem untouched, metrics textfile included
		return code
	}
	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.Error("Failed to write metrics textfile", "path", cfg.Metrics.TextfilePath, "error", err)
		if code == exitcodes.Success {
			code = exitcodes.RuntimeError
		}
	}
	return code
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, sweep.ErrInvalidRoot):
		return exitcodes.InvalidRoot
	case errors.Is(err, sweep.ErrInvalidPattern):
		return exitcodes.InvalidConfig
	default:
		return exitcodes.RuntimeError
	}
}

func exitCodeForState(state sweep.State) int {
	switch state {
	case sweep.StateCompleted:
		return exitcodes.Success
	case sweep.StateDeclined:
		return exitcodes.Declined
	case sweep.StatePartiallyFailed:
		return exitcodes.PartialFailure
	default:
		return exitcodes.RuntimeError
	}
}
