// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// The cellstress command hammers one shared cell from many goroutines
// and checks that no update was lost. Each writer owns a strong handle
// to the cell; readers only hold weak handles and upgrade them for each
// read.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/peterbourgon/ff/v3"
	"github.com/rwcell/rwcell/cell"
	"github.com/rwcell/rwcell/envknob"
	"github.com/rwcell/rwcell/rc"
	"github.com/rwcell/rwcell/syncs"
	"github.com/rwcell/rwcell/types/logger"
)

type config struct {
	readers    int
	writers    int
	iterations int
	progress   time.Duration // 0 disables progress reports
	verbose    bool
}

func main() {
	fs := flag.NewFlagSet("cellstress", flag.ContinueOnError)
	var cfg config
	fs.IntVar(&cfg.readers, "readers", 4, "number of reader goroutines")
	fs.IntVar(&cfg.writers, "writers", 4, "number of writer goroutines")
	fs.IntVar(&cfg.iterations, "iterations", 10000, "updates per writer")
	fs.DurationVar(&cfg.progress, "progress", time.Second, "interval between progress reports while writers run; 0 disables")
	fs.BoolVar(&cfg.verbose, "verbose", false, "log per-goroutine progress")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("CELLSTRESS")); err != nil {
		log.Fatalf("ff.Parse: %v", err)
	}
	logf := logger.Logf(log.Printf)
	envknob.LogCurrent(logf)
	cell.SetLogf(logf)

	start := time.Now()
	st, err := run(context.Background(), cfg, logf)
	if err != nil {
		log.Fatalf("cellstress: %v", err)
	}
	logf("cellstress: final value %d after %v; %d reads, %d busy, %d upgrades refused",
		st.final, time.Since(start).Round(time.Millisecond), st.reads, st.busy, st.refused)
}

type stats struct {
	final   int
	reads   int64
	busy    int64 // TryBorrow found the cell exclusively borrowed
	refused int64 // weak upgrade after all writers were gone
}

func run(ctx context.Context, cfg config, logf logger.Logf) (stats, error) {
	if cfg.writers < 1 || cfg.readers < 0 || cfg.iterations < 0 {
		return stats{}, fmt.Errorf("invalid config %+v", cfg)
	}
	progressf := logf
	if !cfg.verbose {
		logf = logger.Discard
	}
	root := rc.New(0)
	weak := root.Downgrade()
	defer weak.Release()

	var st stats
	counts := make([]stats, cfg.readers)
	var writers, readers, report taskgroup.Group
	writing := syncs.NewWaitGroupChan()
	writing.Add(cfg.writers)
	for i := range cfg.writers {
		own := root.Clone()
		writers.Go(func() error {
			defer writing.Decr()
			defer own.Release()
			for range cfg.iterations {
				if err := own.Update(ctx, func(_ context.Context, p *int) { *p++ }); err != nil {
					return err
				}
			}
			logf("writer %d: done", i)
			return nil
		})
	}
	for i := range cfg.readers {
		readers.Go(func() error {
			c := &counts[i]
			for {
				s, ok := weak.Upgrade()
				if !ok {
					c.refused++
					logf("reader %d: %d reads, %d busy", i, c.reads, c.busy)
					return nil
				}
				err := read(ctx, s, c)
				s.Release()
				if err != nil {
					return err
				}
			}
		})
	}

	if cfg.progress > 0 {
		report.Go(func() error {
			reportProgress(ctx, root, cfg, writing.DoneChan(), progressf)
			return nil
		})
	}

	werr := writers.Wait()
	report.Wait()
	final, gerr := root.Get(ctx)
	// Readers stop once every strong handle is gone.
	root.Release()
	rerr := readers.Wait()
	if err := errors.Join(werr, gerr, rerr); err != nil {
		return st, err
	}
	st.final = final
	for _, c := range counts {
		st.reads += c.reads
		st.busy += c.busy
		st.refused += c.refused
	}
	if want := cfg.writers * cfg.iterations; final != want {
		return st, fmt.Errorf("lost updates: final value %d, want %d", final, want)
	}
	return st, nil
}

// reportProgress logs the cell's value every cfg.progress until done is
// closed. It never waits for a borrow, so a busy writer just skips a
// report.
func reportProgress(ctx context.Context, s *rc.Strong[int], cfg config, done <-chan struct{}, logf logger.Logf) {
	t := time.NewTicker(cfg.progress)
	defer t.Stop()
	want := cfg.writers * cfg.iterations
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if r, ok := s.TryBorrow(ctx); ok {
				logf("cellstress: progress %d/%d", r.Get(), want)
				r.Release()
			}
		}
	}
}

func read(ctx context.Context, s *rc.Strong[int], c *stats) error {
	r, ok := s.TryBorrow(ctx)
	if !ok {
		c.busy++
		return nil
	}
	defer r.Release()
	if r.Get() < 0 {
		return errors.New("negative value observed")
	}
	c.reads++
	return nil
}
