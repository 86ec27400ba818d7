package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evanofslack/dnsctl/internal/config"
	"github.com/evanofslack/dnsctl/internal/metrics"
	"github.com/evanofslack/dnsctl/internal/provider"
)

type Engine interface {
	Reconcile(ctx context.Context, desired []provider.Record) (Results, error)
}

type engine struct {
	dnsProvider provider.Provider
	domain      string
	dryRun      bool
	prune       bool
	protected   map[string]bool
	metrics     *metrics.Metrics
	log         *slog.Logger
}

func NewEngine(dp provider.Provider, cfg *config.Config, metrics *metrics.Metrics, log *slog.Logger) *engine {
	if log == nil {
		log = slog.Default()
	}
	domain := strings.ToLower(strings.TrimSuffix(cfg.DNS.Domain, "."))
	protected := make(map[string]bool)
	for _, r := range cfg.Reconcile.ProtectedRecords {
		protected[strings.ToLower(provider.FullName(r, domain))] = true
	}
	return &engine{
		dnsProvider: dp,
		domain:      domain,
		dryRun:      cfg.Reconcile.DryRun,
		prune:       cfg.Reconcile.Prune,
		protected:   protected,
		metrics:     metrics,
		log:         log.With("zone", domain),
	}
}

// Reconcile brings the records of every name in desired to the desired state.
// Names that do not appear in desired are never touched.
func (e *engine) Reconcile(ctx context.Context, desired []provider.Record) (Results, error) {
	ok, err := e.dnsProvider.Authenticate(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		return Results{}, fmt.Errorf("authenticate: %w", provider.ErrAuthentication)
	}

	plan, skipped, err := e.generatePlan(ctx, desired)
	if err != nil {
		return Results{}, fmt.Errorf("generate plan: %w", err)
	}
	if plan.IsEmpty() {
		e.log.Info("No record changes, ending reconciliation")
		return Results{Skipped: skipped}, nil
	}

	results := e.executePlan(ctx, plan)
	results.Skipped = skipped
	return results, nil
}

type recordKey struct {
	name  string
	rtype string
}

func (e *engine) generatePlan(ctx context.Context, desired []provider.Record) (Plan, []provider.Record, error) {
	var plan Plan
	var skipped []provider.Record

	wanted := make(map[recordKey][]provider.Record)
	var order []recordKey
	for _, r := range desired {
		r, err := provider.Normalize(r, e.domain)
		if err != nil {
			return plan, nil, err
		}
		if r.Type == "" || r.Content == "" {
			return plan, nil, fmt.Errorf("%w: record %q needs a type and content", provider.ErrValidation, r.Name)
		}
		k := recordKey{r.Name, r.Type}
		if _, seen := wanted[k]; !seen {
			order = append(order, k)
		}
		if len(difference([]provider.Record{r}, wanted[k])) == 0 {
			continue
		}
		wanted[k] = append(wanted[k], r)
	}

	if sr, ok := e.dnsProvider.(provider.SetReplacer); ok && sr.ReplacesRecordSets() {
		for _, k := range order {
			if n := len(wanted[k]); n > 1 {
				return plan, nil, fmt.Errorf("%w: %d values for %s %s, but the provider keeps only one value per name and type",
					provider.ErrValidation, n, k.rtype, k.name)
			}
		}
	}

	existing, err := e.dnsProvider.ListRecords(ctx, provider.Filter{})
	if err != nil {
		return plan, nil, fmt.Errorf("list records for zone %s: %w", e.domain, err)
	}
	e.log.Info("Got records from dns provider", "count", len(existing))

	current := make(map[recordKey][]provider.Record)
	for _, r := range existing {
		e.log.Debug("Got record", "name", r.Name, "type", r.Type, "content", r.Content)
		k := recordKey{strings.ToLower(r.Name), strings.ToUpper(r.Type)}
		current[k] = append(current[k], r)
	}

	for _, k := range order {
		if e.isProtected(k.name) {
			e.log.Warn("Skipping protected record", "name", k.name, "type", k.rtype)
			e.metrics.IncDNSOperation("skip", e.domain, k.rtype)
			skipped = append(skipped, wanted[k]...)
			continue
		}

		missing := difference(wanted[k], current[k])
		stale := difference(current[k], wanted[k])

		// a single changed value on a provider with identifiers is an update
		if len(missing) == 1 && len(stale) == 1 && stale[0].ID != "" {
			update := missing[0]
			update.ID = stale[0].ID
			plan.Update = append(plan.Update, update)
			e.metrics.IncDNSOperation("update", e.domain, k.rtype)
			continue
		}

		for _, r := range missing {
			plan.Create = append(plan.Create, r)
			e.metrics.IncDNSOperation("create", e.domain, k.rtype)
		}
		if !e.prune {
			continue
		}
		for _, r := range stale {
			plan.Delete = append(plan.Delete, r)
			e.metrics.IncDNSOperation("delete", e.domain, k.rtype)
		}
	}

	e.log.Debug("Generated plan", "create", len(plan.Create), "update", len(plan.Update), "delete", len(plan.Delete), "skip", len(skipped))
	return plan, skipped, nil
}

func (e *engine) executePlan(ctx context.Context, plan Plan) Results {
	results := Results{}

	if e.dryRun {
		e.log.Info("Dry run mode - would create records", "count", len(plan.Create))
		e.log.Info("Dry run mode - would update records", "count", len(plan.Update))
		e.log.Info("Dry run mode - would delete records", "count", len(plan.Delete))

		results.Created = append([]provider.Record(nil), plan.Create...)
		results.Updated = append([]provider.Record(nil), plan.Update...)
		results.Deleted = append([]provider.Record(nil), plan.Delete...)
		return results
	}

	start := time.Now()
	run := func(op string, records []provider.Record, fn func(context.Context, provider.Record) (bool, error), done *[]provider.Record) {
		for _, record := range records {
			e.log.Debug("Start execute from plan", "operation", op, "name", record.Name, "type", record.Type, "content", record.Content)
			ok, err := fn(ctx, record)
			if err == nil && !ok {
				err = errors.New("provider reported failure")
			}
			if err != nil {
				e.log.Error("Failed to apply record", "operation", op, "name", record.Name, "error", err)
				results.Failures = append(results.Failures, OperationResult{Record: record, Op: op, Error: err.Error()})
				continue
			}
			*done = append(*done, record)
		}
	}

	run("create", plan.Create, e.dnsProvider.CreateRecord, &results.Created)
	run("update", plan.Update, e.dnsProvider.UpdateRecord, &results.Updated)
	run("delete", plan.Delete, e.dnsProvider.DeleteRecord, &results.Deleted)

	if len(results.Failures) > 0 {
		e.log.Warn("Reconciliation finished with failed operations", "failures", len(results.Failures))
	}
	e.log.Info("Reconciliation finished", "created", len(results.Created), "updated", len(results.Updated),
		"deleted", len(results.Deleted), "duration", time.Since(start))
	return results
}

func (e *engine) isProtected(name string) bool {
	return e.protected[name]
}

// difference returns the records of a whose content is not in b.
func difference(a, b []provider.Record) []provider.Record {
	var out []provider.Record
	for _, r := range a {
		found := false
		for _, o := range b {
			if o.Content == r.Content {
				found = true
				break
			}
		}
		if !found {
			out = append(out, r)
		}
	}
	return out
}
