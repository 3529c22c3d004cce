package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"lanscope/internal/adapter"
	"lanscope/internal/cache"
	"lanscope/internal/classify"
	"lanscope/internal/config"
	"lanscope/internal/history"
	"lanscope/internal/repository"
	"lanscope/internal/repository/jsonfile"
	"lanscope/internal/repository/sqlite"
	"lanscope/internal/service"
	"lanscope/internal/vendor"
	"lanscope/internal/watcher"
)

// commonFlags are accepted by every subcommand
type commonFlags struct {
	configPath string
	storePath  string
	backend    string
	posture    string
	targets    string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configPath, "config", "", "config file path (default: search $LANSCOPE_CONFIG, ./lanscope.yaml, XDG paths)")
	fs.StringVar(&f.storePath, "store", "", "cache store path (overrides config)")
	fs.StringVar(&f.backend, "backend", "", "cache store backend: sqlite or json (overrides config)")
	fs.StringVar(&f.posture, "posture", "", "stealth, cautious, balanced or aggressive (overrides config)")
	fs.StringVar(&f.targets, "target", "", "comma-separated CIDRs or addresses to sweep (overrides config)")
	return f
}

// loadConfig reads the config file and applies flag overrides
func (f *commonFlags) loadConfig() (*config.Config, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if f.configPath != "" {
		cfg, path, err = config.LoadFromPath(f.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if path != "" {
		log.Printf("Config loaded from %s", path)
	}

	if f.backend != "" {
		cfg.Store.Backend = config.StoreBackend(f.backend)
	}
	if f.storePath != "" {
		cfg.Store.Path = f.storePath
	}
	if f.posture != "" {
		cfg.Posture = config.ParsePosture(f.posture)
	}
	if f.targets != "" {
		cfg.Targets = splitList(f.targets)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// app holds everything a sweep needs
type app struct {
	cfg       *config.Config
	store     repository.Store
	cache     *cache.Cache
	bus       *service.EventBus
	discovery *service.Discovery
	recorder  *history.PostgresRecorder
	live      *vendor.Live
}

func openStore(cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Backend {
	case config.StoreJSON:
		return jsonfile.New(cfg.Path), nil
	case config.StoreSQLite:
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// loadVendors returns the built-in table, or a reloadable one when a
// vendor file is configured
func loadVendors(cfg config.VendorsConfig) (vendor.Source, *vendor.Live, error) {
	if cfg.File == "" {
		return vendor.Default(), nil, nil
	}
	live, err := vendor.NewLive(cfg.File)
	if err != nil {
		return nil, nil, err
	}
	return live, live, nil
}

// buildDiscoverer picks the discovery and probe implementations
func buildDiscoverer(cfg *config.Config, env config.Environment) (service.HostDiscoverer, classify.PortProber) {
	behavior := cfg.EffectiveBehavior()

	nmapOpts := []adapter.NmapOption{
		adapter.WithDiscoveryTimeout(behavior.DiscoveryTimeout),
		adapter.WithProbeTimeout(behavior.ProbeTimeout),
	}
	if cfg.Probe.Ports != "" {
		nmapOpts = append(nmapOpts, adapter.WithPortRange(cfg.Probe.Ports))
	}
	nmapScanner := adapter.NewNmapScanner(nmapOpts...)

	var discoverer adapter.Discoverer = nmapScanner
	if cfg.ResolveDiscoveryMethod(env) == config.MethodARP {
		discoverer = adapter.NewARPDiscoverer(cfg.Discovery.Interface, 0)
	}
	if cfg.Discovery.MDNS {
		discoverer = adapter.NewMDNSEnricher(discoverer, cfg.Discovery.Interface, 0)
	}

	var prober adapter.Prober = nmapScanner
	if cfg.ResolveProbeMethod(env) == config.MethodTCP {
		tcpCfg := adapter.TCPConfig{Concurrency: behavior.MaxConcurrentProbes}
		if cfg.Probe.Ports != "" {
			if ports, err := adapter.ParsePortSpec(cfg.Probe.Ports); err == nil {
				tcpCfg.Ports = ports
			} else {
				log.Printf("Ignoring probe.ports: %v", err)
			}
		}
		prober = adapter.NewTCPProber(tcpCfg)
	}

	log.Printf("Using %s discovery, %s port probes",
		cfg.ResolveDiscoveryMethod(env), cfg.ResolveProbeMethod(env))
	return discoverer, prober
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	vendors, live, err := loadVendors(cfg.Vendors)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		store: store,
		cache: cache.New(store),
		bus:   service.NewEventBus(),
		live:  live,
	}

	opts := []service.DiscoveryOption{
		service.WithEventBus(a.bus),
		service.WithMaxConcurrentProbes(cfg.EffectiveBehavior().MaxConcurrentProbes),
	}
	if cfg.History.PostgresDSN != "" {
		rec, err := history.NewPostgresRecorder(ctx, cfg.History.PostgresDSN)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.recorder = rec
		opts = append(opts, service.WithRecorder(rec))
	}

	discoverer, prober := buildDiscoverer(cfg, config.DetectEnvironment())
	a.discovery = service.NewDiscovery(discoverer, vendors, prober, a.cache, opts...)
	return a, nil
}

// newCacheOnlyApp opens the store without network adapters
func newCacheOnlyApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, store: store, cache: cache.New(store)}
	if err := a.cache.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// watchVendors reloads the vendor file on change until ctx ends
func (a *app) watchVendors(ctx context.Context) {
	if a.live == nil {
		return
	}
	w := watcher.New(a.live.Path(), a.live.Reload)
	go func() {
		if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Vendor file watch stopped: %v", err)
		}
	}()
}

func (a *app) Close(ctx context.Context) {
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			log.Printf("Failed to close history database: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		log.Printf("Failed to close store: %v", err)
	}
}
