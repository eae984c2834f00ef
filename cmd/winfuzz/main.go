package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Vrohs/winfuzz/internal/cache"
	"github.com/Vrohs/winfuzz/internal/config"
	"github.com/Vrohs/winfuzz/internal/index"
	"github.com/Vrohs/winfuzz/internal/logging"
	"github.com/Vrohs/winfuzz/internal/platform"
	"github.com/Vrohs/winfuzz/internal/scanner"
	"github.com/Vrohs/winfuzz/internal/session"
	"github.com/Vrohs/winfuzz/internal/ui"
)

var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	flagPaths  []string
	flagAll    bool
	flagLocal  bool
	flagDepth  uint32
	flagNoCch  bool
	flagClear  bool
	flagWork   int
)

// errCancelled marks a user abort: exit non-zero, print nothing.
var errCancelled = errors.New("cancelled")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCancelled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "winfuzz",
	Short: "Fast fuzzy file finder",
	Long: `WinFuzz indexes filesystem trees with a concurrent scanner, caches the
index between runs, and lets you fuzzy-search it interactively. The selected
path is written to stdout.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, opts, err := setup()
		if err != nil {
			return err
		}
		return runInteractive(cfg, opts)
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the path index and cache it without entering the finder",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, opts, err := setup()
		if err != nil {
			return err
		}
		return runIndex(cfg, opts)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the index cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := platform.StateDir()
		if err != nil {
			return err
		}
		if err := cache.NewManager(dir, 0).Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringArrayVarP(&flagPaths, "path", "p", nil, "root path to scan (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&flagAll, "all-drives", "a", false, "scan every mounted volume")
	rootCmd.PersistentFlags().BoolVarP(&flagLocal, "local", "l", false, "scan the current directory only")
	rootCmd.PersistentFlags().Uint32VarP(&flagDepth, "max-depth", "d", config.DefaultMaxDepth, "maximum directory depth")
	rootCmd.PersistentFlags().BoolVarP(&flagNoCch, "no-cache", "n", false, "disable index caching")
	rootCmd.PersistentFlags().BoolVarP(&flagClear, "clear-cache", "c", false, "clear the cache before scanning")
	rootCmd.PersistentFlags().IntVarP(&flagWork, "workers", "w", config.DefaultWorkers(), "scanner worker count")

	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(cacheCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(cfgPath)
}

// setup loads the file config, initializes logging, and resolves flags into
// validated Options. Any error here is fatal before scanning begins.
func setup() (*config.Config, config.Options, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Options{}, fmt.Errorf("failed to load config: %w", err)
	}

	logDir := cfg.Log.Dir
	if logDir == "" {
		logDir, _ = platform.StateDir()
	}
	logging.Init(logging.Config{
		Enabled: cfg.Log.Enabled,
		Dir:     logDir,
		Level:   cfg.Log.Level,
	})

	roots, err := resolveRoots()
	if err != nil {
		return nil, config.Options{}, err
	}

	opts := config.Options{
		Roots:      roots,
		MaxDepth:   flagDepth,
		Workers:    flagWork,
		NoCache:    flagNoCch,
		ClearCache: flagClear,
	}
	if err := opts.Validate(); err != nil {
		return nil, config.Options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, opts, nil
}

func resolveRoots() ([]string, error) {
	switch {
	case flagAll:
		return platform.Mounts(), nil
	case flagLocal, len(flagPaths) == 0:
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working directory: %w", err)
		}
		return []string{cwd}, nil
	default:
		return flagPaths, nil
	}
}

// prepare wires the cache manager and either hydrates the store from a valid
// cache entry or builds the scanner for a fresh scan.
func prepare(cfg *config.Config, opts config.Options) (*index.Store, *scanner.Scanner, *cache.Manager, string, error) {
	log := logging.ForComponent(logging.CompCLI)

	dir, err := platform.StateDir()
	if err != nil {
		return nil, nil, nil, "", err
	}
	mgr := cache.NewManager(dir, time.Duration(cfg.CacheTTLHours)*time.Hour)

	if opts.ClearCache {
		if err := mgr.Clear(); err != nil {
			log.Warn("cache clear failed", "err", err)
		}
	}

	key := cache.ScopeKey(opts.Roots, opts.MaxDepth)
	if !opts.NoCache {
		if records, ok := mgr.Load(key); ok {
			log.Info("cache hit", "key", key, "records", len(records))
			return index.Hydrate(records), nil, mgr, key, nil
		}
	}

	scn, err := scanner.New(scanner.Options{
		MaxDepth:     opts.MaxDepth,
		Workers:      opts.Workers,
		ExcludeDirs:  cfg.ExcludeDirs,
		ExcludeFiles: cfg.ExcludeFiles,
	})
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return index.New(4096), scn, mgr, key, nil
}

func runInteractive(cfg *config.Config, opts config.Options) error {
	log := logging.ForComponent(logging.CompCLI)

	store, scn, mgr, key, err := prepare(cfg, opts)
	if err != nil {
		return err
	}

	var runScan ui.ScanRunner
	progressFn := func() scanner.Progress { return scanner.Progress{Records: int64(store.Len())} }
	if scn != nil {
		progressFn = scn.Progress
		runScan = func(ctx context.Context) (scanner.Outcome, error) {
			outcome, err := scn.Scan(ctx, opts.Roots, store)
			if err == nil && !outcome.Cancelled && !opts.NoCache {
				// Persistence failures never break the run.
				if saveErr := mgr.Save(key, store.Snapshot()); saveErr != nil {
					log.Warn("cache save failed", "err", saveErr)
				}
			}
			return outcome, err
		}
	}

	sess := session.New(store, cfg.ResultLimit, cfg.PageSize)
	model := ui.New(sess, cfg.PageSize, runScan, progressFn)

	// The selection goes to stdout; the TUI renders on stderr so the
	// output stays pipeable.
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("event loop failed: %w", err)
	}

	m := final.(ui.Model)
	if m.Cancelled() || m.Choice() == "" {
		return errCancelled
	}
	fmt.Println(m.Choice())
	return nil
}
