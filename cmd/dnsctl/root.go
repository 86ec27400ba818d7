package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evanofslack/dnsctl/internal/provider"
)

type globalFlags struct {
	configFile      string
	logLevel        string
	logEnv          string
	metricsTextfile string
	traceExporter   string
	cassetteMode    string
	cassettePath    string
}

type providerFlags struct {
	authUsername string
	authPassword string
	authToken    string
	endpoint     string
	ttl          int
}

type recordFlags struct {
	name       string
	content    string
	identifier string
	output     string
}

type syncFlags struct {
	file       string
	caddyAdmin string
	target     string
	dryRun     bool
	prune      bool
	output     string
}

func newRootCmd(registry *provider.Registry) *cobra.Command {
	global := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "dnsctl",
		Short: "Manage DNS records across providers",
		Long: `dnsctl creates, lists, updates and deletes DNS records through a uniform
interface over several DNS providers, and reconciles a zone against a records file.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	fs := rootCmd.PersistentFlags()
	fs.StringVar(&global.configFile, "config", "", "Path to dnsctl config file (yaml)")
	fs.StringVar(&global.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&global.logEnv, "log-env", "", "Log format: dev (text) or prod (json)")
	fs.StringVar(&global.metricsTextfile, "metrics-textfile", "", "Write metrics to this node exporter textfile")
	fs.StringVar(&global.traceExporter, "trace", "", "Trace exporter: none or console")
	fs.StringVar(&global.cassetteMode, "cassette-mode", "", "Recorded HTTP interactions: off, record or replay")
	fs.StringVar(&global.cassettePath, "cassette-path", "", "Path of the cassette database")

	rootCmd.AddCommand(newProvidersCmd(registry))
	for _, name := range registry.Names() {
		rootCmd.AddCommand(newProviderCmd(registry, name, global))
	}
	return rootCmd
}

func newProvidersCmd(registry *provider.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the available DNS providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newProviderCmd(registry *provider.Registry, name string, global *globalFlags) *cobra.Command {
	pf := &providerFlags{}
	providerCmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage DNS records with the %s provider", name),
	}
	addProviderFlags(providerCmd.PersistentFlags(), pf)

	for _, action := range []string{"list", "create", "update", "delete"} {
		providerCmd.AddCommand(newActionCmd(registry, name, action, global, pf))
	}
	providerCmd.AddCommand(newSyncCmd(registry, name, global, pf))
	providerCmd.AddCommand(newChallengeCmd(registry, name, global, pf))
	return providerCmd
}

func addProviderFlags(fs *pflag.FlagSet, pf *providerFlags) {
	fs.StringVar(&pf.authUsername, "auth-username", "", "Account username")
	fs.StringVar(&pf.authPassword, "auth-password", "", "Account password")
	fs.StringVar(&pf.authToken, "auth-token", "", "API token")
	fs.StringVar(&pf.endpoint, "endpoint", "", "Override the provider API endpoint")
	fs.IntVar(&pf.ttl, "ttl", 0, "Record TTL in seconds (0 uses the provider default)")
}

func newActionCmd(registry *provider.Registry, providerName, action string, global *globalFlags, pf *providerFlags) *cobra.Command {
	rf := &recordFlags{}
	args := cobra.ExactArgs(2)
	use := action + " <domain> <type>"
	if action == "list" {
		args = cobra.RangeArgs(1, 2)
		use = action + " <domain> [type]"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s DNS records", strings.ToUpper(action[:1])+action[1:]),
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			record := provider.Record{
				ID:      rf.identifier,
				Name:    rf.name,
				Content: rf.content,
			}
			if len(args) > 1 {
				record.Type = strings.ToUpper(args[1])
			}
			return runAction(cmd, registry, providerName, action, args[0], record, rf.output, global, pf)
		},
	}
	cmd.Flags().StringVar(&rf.name, "name", "", "Record name, relative or fully qualified")
	cmd.Flags().StringVar(&rf.content, "content", "", "Record content")
	cmd.Flags().StringVar(&rf.identifier, "identifier", "", "Provider record identifier")
	cmd.Flags().StringVarP(&rf.output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func newSyncCmd(registry *provider.Registry, providerName string, global *globalFlags, pf *providerFlags) *cobra.Command {
	sf := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "sync <domain>",
		Short: "Reconcile a zone against a records file or a Caddy instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, registry, providerName, args[0], sf, global, pf)
		},
	}
	cmd.Flags().StringVarP(&sf.file, "file", "f", "", "Path to the records file")
	cmd.Flags().StringVar(&sf.caddyAdmin, "caddy-admin", "", "Caddy admin API url to read served hosts from")
	cmd.Flags().StringVar(&sf.target, "target", "", "Address or hostname the Caddy hosts point at")
	cmd.Flags().BoolVar(&sf.dryRun, "dry-run", false, "Plan changes without applying them")
	cmd.Flags().BoolVar(&sf.prune, "prune", false, "Delete values of managed names missing from the records file")
	cmd.Flags().StringVarP(&sf.output, "output", "o", "table", "Output format: table or json")
	cmd.MarkFlagsOneRequired("file", "caddy-admin")
	cmd.MarkFlagsMutuallyExclusive("file", "caddy-admin")
	cmd.MarkFlagsRequiredTogether("caddy-admin", "target")
	return cmd
}
