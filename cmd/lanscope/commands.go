package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"lanscope/internal/classify"
	"lanscope/internal/codec"
	"lanscope/internal/domain"
	"lanscope/internal/handler"
	"lanscope/internal/history"
	"lanscope/internal/hub"
	"lanscope/internal/service"
)

// outputSweep prints a sweep as a table or encodes it with a codec
func outputSweep(format string, sweep *domain.Sweep) error {
	if format == "" || format == "table" {
		renderSweep(os.Stdout, sweep)
		return nil
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.ExportSweep(sweep, os.Stdout)
}

// reportSweepError prints persistence warnings and returns anything worse
func reportSweepError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, classify.ErrPersist) {
		color.Yellow("warning: some classifications were not saved: %v", err)
		return nil
	}
	return err
}

func runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	common := addCommonFlags(fs)
	force := fs.Bool("force", false, "ignore cached classifications and probe every host")
	format := fs.String("format", "table", "output format: table, json or yaml")
	fs.Parse(args)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	for _, target := range cfg.Targets {
		sweep, err := a.discovery.Sweep(ctx, target, *force)
		if sweep == nil {
			return err
		}
		if err := outputSweep(*format, sweep); err != nil {
			return err
		}
		if err := reportSweepError(err); err != nil {
			return err
		}
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	common := addCommonFlags(fs)
	interval := fs.Duration("interval", 0, "time between sweeps (default: posture sweep interval)")
	format := fs.String("format", "table", "output format: table, json or yaml")
	fs.Parse(args)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	every := *interval
	if every <= 0 {
		every = cfg.EffectiveBehavior().SweepInterval
	}

	a.watchVendors(ctx)
	sched := service.NewScheduler(a.discovery, cfg.Targets, every, func(target string, sweep *domain.Sweep, err error) {
		if sweep != nil {
			if err := outputSweep(*format, sweep); err != nil {
				log.Printf("Failed to print sweep: %v", err)
			}
		}
		if err := reportSweepError(err); err != nil {
			color.Red("sweep of %s failed: %v", target, err)
		}
	})
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	sched.Stop()
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommonFlags(fs)
	addr := fs.String("addr", ":8080", "HTTP listen address")
	fs.Parse(args)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	a.watchVendors(ctx)

	sseHub := hub.New()
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	a.bus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(string(event.Type), event)
			case <-ctx.Done():
				return
			}
		}
	}()

	var api *handler.SweepHandler
	sched := service.NewScheduler(a.discovery, cfg.Targets, cfg.EffectiveBehavior().SweepInterval,
		func(target string, sweep *domain.Sweep, err error) {
			if err != nil {
				log.Printf("Sweep of %s: %v", target, err)
			}
			api.RecordSweep(target, sweep, err)
		})
	// Manual sweeps go through the scheduler so they never overlap a periodic one.
	api = handler.NewSweepHandler(sched, a.cache, cfg.Targets[0])

	mux := http.NewServeMux()
	api.Routes(mux, sseHub)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runCache(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cache: expected list, export or import")
	}

	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("cache "+sub, flag.ExitOnError)
	common := addCommonFlags(fs)
	format := fs.String("format", "", "table (list only), json or yaml")
	file := fs.String("file", "", "file to write (export) or read (import); default stdout/stdin")
	fs.Parse(args)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	a, err := newCacheOnlyApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	switch sub {
	case "list":
		if *format == "" || *format == "table" {
			renderRecords(os.Stdout, a.cache.Snapshot())
			return nil
		}
		c, err := codec.ForFormat(*format)
		if err != nil {
			return err
		}
		return c.ExportRecords(a.cache.Snapshot(), os.Stdout)

	case "export":
		c, err := codec.ForFormat(defaultString(*format, "json"))
		if err != nil {
			return err
		}
		out := os.Stdout
		if *file != "" {
			f, err := os.Create(*file)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return c.ExportRecords(a.cache.Snapshot(), out)

	case "import":
		c, err := codec.ForFormat(defaultString(*format, "json"))
		if err != nil {
			return err
		}
		in := os.Stdin
		if *file != "" {
			f, err := os.Open(*file)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		records, err := c.ParseRecords(in)
		if err != nil {
			return err
		}
		for mac, rec := range records {
			a.cache.Put(mac, rec)
		}
		if err := a.cache.Save(ctx); err != nil {
			return err
		}
		color.Green("imported %d records (%d total)", len(records), a.cache.Len())
		return nil

	default:
		return fmt.Errorf("cache: unknown subcommand %q", sub)
	}
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	common := addCommonFlags(fs)
	mac := fs.String("mac", "", "MAC address to look up")
	limit := fs.Int("limit", 20, "maximum sightings to show")
	fs.Parse(args)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.PostgresDSN == "" {
		return fmt.Errorf("history: history.postgres_dsn is not configured")
	}
	if *mac == "" {
		return fmt.Errorf("history: -mac is required")
	}

	rec, err := history.NewPostgresRecorder(ctx, cfg.History.PostgresDSN)
	if err != nil {
		return err
	}
	defer rec.Close(context.Background())

	sightings, err := rec.Sightings(ctx, *mac, *limit)
	if err != nil {
		return err
	}
	if len(sightings) == 0 {
		color.Yellow("no sightings of %s", domain.NormalizeMAC(*mac))
		return nil
	}
	for _, s := range sightings {
		paint := confidenceColor(s.Confidence)
		fmt.Printf("%s  %-15s  %-40s %s\n",
			s.SeenAt.Local().Format(time.DateTime), s.IP, s.Classification,
			paint(fmt.Sprintf("%3d%%", s.Confidence)))
	}
	return nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func sortedKeys(records map[string]domain.CacheRecord) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
