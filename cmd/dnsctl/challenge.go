package main

import (
	"context"
	"fmt"
	"time"

	"github.com/libdns/libdns"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/evanofslack/dnsctl/internal/provider"
	"github.com/evanofslack/dnsctl/internal/provider/libdnsx"
)

const defaultChallengeLabel = "_acme-challenge"

type challengeFlags struct {
	name   string
	output string
}

// newChallengeCmd manages ACME DNS-01 TXT records through the libdns
// interfaces, the way an ACME client drives a DNS provider.
func newChallengeCmd(registry *provider.Registry, providerName string, global *globalFlags, pf *providerFlags) *cobra.Command {
	cf := &challengeFlags{}
	challengeCmd := &cobra.Command{
		Use:   "challenge",
		Short: "Present or clean up ACME DNS-01 challenge records",
	}
	challengeCmd.PersistentFlags().StringVar(&cf.name, "name", defaultChallengeLabel, "Challenge record name, relative to the domain")
	challengeCmd.PersistentFlags().StringVarP(&cf.output, "output", "o", "table", "Output format: table or json")

	challengeCmd.AddCommand(&cobra.Command{
		Use:   "present <domain> <token>",
		Short: "Set the challenge record to token, replacing older values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChallenge(cmd, registry, providerName, "present", args[0], args[1], cf, global, pf)
		},
	})
	challengeCmd.AddCommand(&cobra.Command{
		Use:   "cleanup <domain> [token]",
		Short: "Delete the challenge record, or only the token value when given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) > 1 {
				token = args[1]
			}
			return runChallenge(cmd, registry, providerName, "cleanup", args[0], token, cf, global, pf)
		},
	})
	return challengeCmd
}

func runChallenge(cmd *cobra.Command, registry *provider.Registry, providerName, action, domain, token string, cf *challengeFlags, global *globalFlags, pf *providerFlags) (err error) {
	if cf.output != "table" && cf.output != "json" {
		return fmt.Errorf("%w: unknown output format %q", provider.ErrConfiguration, cf.output)
	}
	rt, err := setup(cmd, registry, providerName, domain, global, pf)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	start := time.Now()
	defer func() { rt.finish("challenge-"+action, start, err) }()

	ctx, span := rt.tracer.Start(cmd.Context(), "cmd.challenge."+action)
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", providerName),
		attribute.String("domain", domain),
	)

	zone := rt.cfg.DNS.Domain
	name := provider.RelativeName(provider.FullName(cf.name, zone), zone)
	if name == "" {
		name = "@"
	}
	record := libdns.TXT{
		Name: name,
		Text: token,
		TTL:  time.Duration(rt.cfg.DNS.TTL) * time.Second,
	}
	adapter := libdnsx.New(rt.provider, zone, rt.log)

	var done []libdns.Record
	switch action {
	case "present":
		done, err = adapter.SetRecords(ctx, zone, []libdns.Record{record})
	case "cleanup":
		done, err = adapter.DeleteRecords(ctx, zone, []libdns.Record{record})
	default:
		err = fmt.Errorf("%w: unknown challenge action %q", provider.ErrUnsupported, action)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	rt.log.Info("Challenge record handled", "action", action, "name", record.Name, "count", len(done))

	records := make([]provider.Record, 0, len(done))
	for _, rec := range done {
		records = append(records, libdnsx.FromLibdns(rec, zone))
	}
	return writeRecords(cmd.OutOrStdout(), cf.output, records)
}
