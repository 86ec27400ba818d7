package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/evanofslack/dnsctl/internal/provider"
	"github.com/evanofslack/dnsctl/internal/reconcile"
	"github.com/evanofslack/dnsctl/internal/source/caddy"
)

// recordsFile is the desired state read by sync.
type recordsFile struct {
	Records []recordEntry `yaml:"records"`
}

type recordEntry struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Content string `yaml:"content"`
	TTL     int    `yaml:"ttl"`
}

func loadRecords(path string, defaultTTL int) ([]provider.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}
	var file recordsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode records file %s: %w", path, err)
	}

	records := make([]provider.Record, 0, len(file.Records))
	for i, e := range file.Records {
		if e.Type == "" || e.Content == "" {
			return nil, fmt.Errorf("%w: records file entry %d needs a type and content", provider.ErrValidation, i)
		}
		ttl := e.TTL
		if ttl == 0 {
			ttl = defaultTTL
		}
		records = append(records, provider.Record{
			Name:    e.Name,
			Type:    e.Type,
			Content: e.Content,
			TTL:     time.Duration(ttl) * time.Second,
		})
	}
	return records, nil
}

// desiredRecords reads the desired state from the records file or from the
// hosts served by a Caddy instance.
func desiredRecords(ctx context.Context, rt *runtime, sf *syncFlags) ([]provider.Record, error) {
	if sf.caddyAdmin == "" {
		return loadRecords(sf.file, rt.cfg.DNS.TTL)
	}
	domains, err := caddy.New(sf.caddyAdmin, rt.http, rt.log).Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("read caddy hosts: %w", err)
	}
	rt.log.Debug("Read caddy hosts", "count", len(domains))
	return caddy.Records(domains, rt.cfg.DNS.Domain, sf.target, time.Duration(rt.cfg.DNS.TTL)*time.Second), nil
}

func runSync(cmd *cobra.Command, registry *provider.Registry, providerName, domain string, sf *syncFlags, global *globalFlags, pf *providerFlags) (err error) {
	if sf.output != "table" && sf.output != "json" {
		return fmt.Errorf("%w: unknown output format %q", provider.ErrConfiguration, sf.output)
	}
	rt, err := setup(cmd, registry, providerName, domain, global, pf)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	start := time.Now()
	defer func() { rt.finish("sync", start, err) }()

	if cmd.Flags().Changed("dry-run") {
		rt.cfg.Reconcile.DryRun = sf.dryRun
	}
	if cmd.Flags().Changed("prune") {
		rt.cfg.Reconcile.Prune = sf.prune
	}

	ctx, span := rt.tracer.Start(cmd.Context(), "cmd.sync")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", providerName),
		attribute.String("domain", domain),
		attribute.Bool("dry_run", rt.cfg.Reconcile.DryRun),
		attribute.Bool("prune", rt.cfg.Reconcile.Prune),
	)

	desired, err := desiredRecords(ctx, rt, sf)
	if err != nil {
		span.RecordError(err)
		return err
	}

	rt.log.Info("Reconciling records", "count", len(desired), "dry_run", rt.cfg.Reconcile.DryRun)
	engine := reconcile.NewEngine(rt.provider, rt.cfg, rt.metrics, rt.log)
	results, err := engine.Reconcile(ctx, desired)
	if err != nil {
		span.RecordError(err)
		return err
	}

	rt.log.Info("Sync completed",
		"created", len(results.Created),
		"updated", len(results.Updated),
		"deleted", len(results.Deleted),
		"failed", len(results.Failures))

	if err := writeResults(cmd.OutOrStdout(), sf.output, results, rt.cfg.Reconcile.DryRun); err != nil {
		return err
	}
	if len(results.Failures) > 0 {
		return fmt.Errorf("%d record operations failed", len(results.Failures))
	}
	return nil
}
