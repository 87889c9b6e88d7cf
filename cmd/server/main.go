package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/keithlinneman/charactergen/internal/cfg"
	"github.com/keithlinneman/charactergen/internal/generatehttp"
	"github.com/keithlinneman/charactergen/internal/health"
	"github.com/keithlinneman/charactergen/internal/httpmw"
	"github.com/keithlinneman/charactergen/internal/httpserver"
	"github.com/keithlinneman/charactergen/internal/imagegen"
	"github.com/keithlinneman/charactergen/internal/log"
	"github.com/keithlinneman/charactergen/internal/metrics"
	"github.com/keithlinneman/charactergen/internal/opshttp"
	"github.com/keithlinneman/charactergen/internal/otelx"
	"github.com/keithlinneman/charactergen/internal/prof"
	"github.com/keithlinneman/charactergen/internal/prompthttp"
	"github.com/keithlinneman/charactergen/internal/ratelimit"
	"github.com/keithlinneman/charactergen/internal/secrets"
	"github.com/keithlinneman/charactergen/internal/sitehandler"
	v "github.com/keithlinneman/charactergen/internal/version"
	"github.com/keithlinneman/charactergen/internal/webassets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.App, vi.Version, vi.Commit, vi.CommitDate, vi.BuildID, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// dotenv only seeds the process env, so it has to land before FillFromEnv
	if err := cfg.LoadDotenv(conf.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	cfg.FillAPIKey(&conf)

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, _ := log.ParseLevel(conf.LogLevel)
	var stackLvl slog.Level
	if conf.StacktraceLevel != "" {
		stackLvl, _ = log.ParseLevel(conf.StacktraceLevel)
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", v.Component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildID,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"environment", conf.Environment,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"ai_model", conf.AIModel,
		"provider_timeout", conf.ProviderTimeout,
		"rate_limit", conf.RateLimit,
		"rate_window", conf.RateWindow,
		"rate_store", rateStoreName(conf),
	)

	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": v.Component,
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Insecure because the collector is on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: v.Component,
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	m := metrics.New()
	m.SetBuildInfo(vi)
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	apiKey, err := resolveAPIKey(ctx, conf)
	if err != nil {
		// the generate endpoint reports a configuration error without a key
		L.Error(ctx, err, "failed to resolve provider API key")
	}

	var gen imagegen.Generator
	if apiKey != "" {
		g, err := imagegen.NewGenAI(ctx, imagegen.Options{
			APIKey:  apiKey,
			Model:   conf.AIModel,
			Timeout: conf.ProviderTimeout,
		})
		if err != nil {
			L.Error(ctx, err, "failed to create image provider client")
		} else {
			gen = imagegen.NewThrottled(g, conf.ProviderRPS, conf.ProviderBurst)
		}
	} else {
		L.Warn(ctx, "no provider API key configured, generation requests will fail with a configuration error",
			"env", cfg.APIKeyEnv)
	}

	store, storeReady, closeStore, err := newRateStore(ctx, conf)
	if err != nil {
		L.Error(ctx, err, "failed to create rate limit store")
		os.Exit(1)
	}
	defer closeStore()

	limiter := ratelimit.New(store,
		ratelimit.WithQuota(conf.RateLimit, conf.RateWindow),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
		// logged once per client per window
		ratelimit.WithOnFirstDenied(func(key string) {
			L.Warn(ctx, "generation rate limit reached",
				"rate_limit.key", key,
				"rate_limit.limit", conf.RateLimit,
				"rate_limit.window", conf.RateWindow,
			)
		}),
		ratelimit.WithOnStoreError(func(key string, err error) {
			m.IncRateLimitStoreError()
			L.Error(ctx, err, "rate limit store failed, allowing request", "rate_limit.key", key)
		}),
	)

	generateHandler := generatehttp.New(gen,
		generatehttp.WithPrefix(conf.PromptPrefix),
		generatehttp.WithRecorder(m),
	)
	promptAPI := prompthttp.NewAPI(L)

	siteHandler, err := sitehandler.New(sitehandler.Options{
		Logger: L,
		Site:   webassets.SiteFS(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe(), storeReady)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		WriteTimeout: conf.WriteTimeout,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		CORS: httpmw.CORSOptions{
			Production: conf.Environment == cfg.EnvProduction,
			Origin:     conf.ProductionOrigin,
		},
		APIRoutes: func(r chi.Router) {
			generateHandler.RegisterRoutes(r, limiter)
			promptAPI.RegisterRoutes(r)
		},
		SiteHandler: siteHandler,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// the admin listener also rejects public source addresses in case the
	// network boundary is ever misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		OnPanic:     m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	// fail readiness first so the load balancer stops routing new requests
	gate.Set("draining")
	L.Info(bg, "shutdown gate closed, draining", "drain_delay", conf.DrainDelay)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.DrainDelay):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	// in-flight generations may run up to the provider timeout
	shutdownCtx, cancel := context.WithTimeout(bg, conf.ProviderTimeout+5*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "app http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

// resolveAPIKey prefers a managed secret when one is configured
func resolveAPIKey(ctx context.Context, conf cfg.App) (string, error) {
	src := secrets.Source{SSMParam: conf.AIAPIKeySSMParam, KMSCiphertext: conf.AIAPIKeyKMSCiphertext}
	if src.Empty() {
		return conf.AIAPIKey, nil
	}
	r, err := secrets.NewResolver(ctx)
	if err != nil {
		return conf.AIAPIKey, err
	}
	key, err := r.Resolve(ctx, src)
	if err != nil {
		return conf.AIAPIKey, err
	}
	return key, nil
}

func rateStoreName(conf cfg.App) string {
	if conf.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}

// newRateStore returns the configured window store, a readiness probe for it
// and a close func.
func newRateStore(ctx context.Context, conf cfg.App) (ratelimit.Store, health.Probe, func(), error) {
	if conf.RedisAddr == "" {
		return ratelimit.NewMemoryStore(ctx, conf.RateSweep), nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	store, err := ratelimit.NewRedisStore(client, conf.RedisKeyPrefix)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	ready := health.CheckFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return store, ready, func() { _ = client.Close() }, nil
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	_, _ = conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
