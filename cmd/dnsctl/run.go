package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/evanofslack/dnsctl/internal/cassette"
	"github.com/evanofslack/dnsctl/internal/config"
	"github.com/evanofslack/dnsctl/internal/logger"
	"github.com/evanofslack/dnsctl/internal/metrics"
	"github.com/evanofslack/dnsctl/internal/provider"
	"github.com/evanofslack/dnsctl/internal/telemetry"
)

// runtime holds everything a command needs for one invocation.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	provider provider.Provider
	http     provider.Doer
	closers  []func(context.Context) error
}

// setup loads configuration, applies flag overrides and builds the provider.
// The caller must call close.
func setup(cmd *cobra.Command, registry *provider.Registry, providerName, domain string, global *globalFlags, pf *providerFlags) (*runtime, error) {
	// flags only until the config file is read
	logger.Configure(global.logLevel, global.logEnv, cmd.ErrOrStderr())

	cfg, err := config.Load(global.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg, providerName, domain, global, pf)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, metrics: metrics.New(true)}
	rt.log = logger.Configure(cfg.Log.Level, cfg.Log.Env, cmd.ErrOrStderr()).With("run_id", uuid.NewString())

	tracer, shutdown, err := telemetry.Setup(cmd.Context(), cfg.Trace.Exporter, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	rt.tracer = tracer
	rt.closers = append(rt.closers, shutdown)

	var doer provider.Doer = &http.Client{Timeout: cfg.DNS.Timeout}
	rt.http = doer
	if cfg.Cassette.Mode != config.CassetteOff {
		store, err := cassette.Open(cfg.Cassette.Path, rt.metrics)
		if err != nil {
			rt.close(cmd.Context())
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })

		rec, err := cassette.NewRecorder(cfg.Cassette.Mode, store, doer, cfg.Cassette.Secrets, rt.log)
		if err != nil {
			rt.close(cmd.Context())
			return nil, err
		}
		doer = rec
	}

	opts := cfg.ProviderOptions()
	rt.log.Debug("Building provider", "provider", cfg.DNS.Provider, "domain", opts.Domain, "credentials", opts.Credentials())
	p, err := registry.New(cfg.DNS.Provider, opts, provider.Deps{Logger: rt.log, Metrics: rt.metrics, HTTP: doer})
	if err != nil {
		rt.close(cmd.Context())
		return nil, err
	}
	rt.provider = p
	return rt, nil
}

// applyFlags lets explicitly set flags override the file and environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config, providerName, domain string, global *globalFlags, pf *providerFlags) {
	cfg.DNS.Provider = providerName
	cfg.DNS.Domain = domain

	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("log-level", &cfg.Log.Level, global.logLevel)
	set("log-env", &cfg.Log.Env, global.logEnv)
	set("metrics-textfile", &cfg.Metrics.Textfile, global.metricsTextfile)
	set("trace", &cfg.Trace.Exporter, global.traceExporter)
	set("cassette-mode", &cfg.Cassette.Mode, global.cassetteMode)
	set("cassette-path", &cfg.Cassette.Path, global.cassettePath)
	set("auth-username", &cfg.DNS.AuthUsername, pf.authUsername)
	set("auth-password", &cfg.DNS.AuthPassword, pf.authPassword)
	set("auth-token", &cfg.DNS.AuthToken, pf.authToken)
	set("endpoint", &cfg.DNS.Endpoint, pf.endpoint)
	if cmd.Flags().Changed("ttl") {
		cfg.DNS.TTL = pf.ttl
	}
}

func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil && rt.log != nil {
			rt.log.Warn("Failed to release resource", "error", err)
		}
	}
	rt.closers = nil
}

// finish records the command outcome and writes the metrics textfile.
func (rt *runtime) finish(command string, start time.Time, err error) {
	rt.metrics.IncCommandRun(command, err == nil)
	rt.metrics.SetCommandDuration(time.Since(start))
	if path := rt.cfg.Metrics.Textfile; path != "" {
		if werr := rt.metrics.WriteTextfile(path); werr != nil {
			rt.log.Error("Failed to write metrics textfile", "path", path, "error", werr)
		}
	}
}

func runAction(cmd *cobra.Command, registry *provider.Registry, providerName, action, domain string, record provider.Record, output string, global *globalFlags, pf *providerFlags) (err error) {
	if output != "table" && output != "json" {
		return fmt.Errorf("%w: unknown output format %q", provider.ErrConfiguration, output)
	}
	rt, err := setup(cmd, registry, providerName, domain, global, pf)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	start := time.Now()
	defer func() { rt.finish(action, start, err) }()

	ctx, span := rt.tracer.Start(cmd.Context(), "cmd."+action)
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", providerName),
		attribute.String("domain", domain),
		attribute.String("record_type", record.Type),
	)

	if rt.cfg.DNS.TTL > 0 && record.TTL == 0 {
		record.TTL = time.Duration(rt.cfg.DNS.TTL) * time.Second
	}

	ok, err := rt.provider.Authenticate(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		return fmt.Errorf("%w: authentication failed", provider.ErrAuthentication)
	}

	out := cmd.OutOrStdout()
	switch action {
	case "list":
		records, err := rt.provider.ListRecords(ctx, provider.Filter{Type: record.Type, Name: record.Name, Content: record.Content})
		if err != nil {
			span.RecordError(err)
			return err
		}
		rt.log.Info("Listed records", "count", len(records))
		return writeRecords(out, output, records)
	case "create":
		ok, err = rt.provider.CreateRecord(ctx, record)
	case "update":
		ok, err = rt.provider.UpdateRecord(ctx, record)
	case "delete":
		ok, err = rt.provider.DeleteRecord(ctx, record)
	default:
		return fmt.Errorf("%w: unknown action %q", provider.ErrUnsupported, action)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	if werr := writeResult(out, output, action, ok); werr != nil {
		return werr
	}
	if !ok {
		return fmt.Errorf("%s did not succeed", action)
	}
	return nil
}
