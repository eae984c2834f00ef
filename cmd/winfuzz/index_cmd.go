package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Vrohs/winfuzz/internal/config"
	"github.com/Vrohs/winfuzz/internal/logging"
)

// runIndex builds the index non-interactively and persists it, so the next
// interactive run starts from a warm cache.
func runIndex(cfg *config.Config, opts config.Options) error {
	log := logging.ForComponent(logging.CompCLI)

	store, scn, mgr, key, err := prepare(cfg, opts)
	if err != nil {
		return err
	}
	if scn == nil {
		fmt.Printf("Cache is already warm (%d records).\n", store.Len())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionSpinnerType(14),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Set64(scn.Progress().Records)
			}
		}
	}()

	outcome, scanErr := scn.Scan(ctx, opts.Roots, store)
	close(done)
	bar.Finish()
	fmt.Println()

	if outcome.Cancelled {
		fmt.Println("Scan interrupted; partial index discarded.")
		return scanErr
	}

	fmt.Printf("Indexed %d entries in %s (%d directories skipped).\n",
		outcome.Records, outcome.Elapsed.Round(time.Millisecond), outcome.SkippedUnits)

	if opts.NoCache {
		return nil
	}
	if err := mgr.Save(key, store.Snapshot()); err != nil {
		log.Warn("cache save failed", "err", err)
		fmt.Fprintf(os.Stderr, "Warning: could not persist index: %v\n", err)
		return nil
	}
	fmt.Printf("Cached under scope %s.\n", key)
	return nil
}
