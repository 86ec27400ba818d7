// Package libdnsx exposes any provider.Provider through the libdns interfaces
// so it can back libdns consumers such as ACME DNS-01 solvers.
package libdnsx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/libdns/libdns"

	"github.com/evanofslack/dnsctl/internal/provider"
)

var (
	_ libdns.RecordGetter   = (*Adapter)(nil)
	_ libdns.RecordAppender = (*Adapter)(nil)
	_ libdns.RecordSetter   = (*Adapter)(nil)
	_ libdns.RecordDeleter  = (*Adapter)(nil)
)

// Adapter serves a single zone. Calls for any other zone fail.
type Adapter struct {
	provider provider.Provider
	domain   string
	log      *slog.Logger

	mu     sync.Mutex
	authed bool
}

func New(p provider.Provider, domain string, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	return &Adapter{provider: p, domain: domain, log: log.With("zone", domain)}
}

func (a *Adapter) GetRecords(ctx context.Context, zone string) ([]libdns.Record, error) {
	if err := a.prepare(ctx, zone); err != nil {
		return nil, err
	}
	records, err := a.provider.ListRecords(ctx, provider.Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]libdns.Record, 0, len(records))
	for _, r := range records {
		rec, err := ToLibdns(r, a.domain)
		if err != nil {
			a.log.Warn("Skipping record", "name", r.Name, "type", r.Type, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (a *Adapter) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	if err := a.prepare(ctx, zone); err != nil {
		return nil, err
	}
	var appended []libdns.Record
	for _, rec := range recs {
		r := FromLibdns(rec, a.domain)
		if err := check(a.provider.CreateRecord(ctx, r)); err != nil {
			return appended, fmt.Errorf("append %s %s: %w", r.Type, r.Name, err)
		}
		appended = append(appended, rec)
	}
	return appended, nil
}

// SetRecords makes each (name, type) set in recs exactly match recs: records of
// those sets with other values are deleted, then the inputs are created.
func (a *Adapter) SetRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	if err := a.prepare(ctx, zone); err != nil {
		return nil, err
	}

	type key struct{ name, rtype string }
	wanted := make(map[key]map[string]bool)
	var order []key
	for _, rec := range recs {
		r := FromLibdns(rec, a.domain)
		k := key{r.Name, r.Type}
		if wanted[k] == nil {
			wanted[k] = make(map[string]bool)
			order = append(order, k)
		}
		wanted[k][r.Content] = true
	}

	for _, k := range order {
		existing, err := a.provider.ListRecords(ctx, provider.Filter{Type: k.rtype, Name: k.name})
		if err != nil {
			return nil, err
		}
		for _, r := range existing {
			if wanted[k][r.Content] {
				continue
			}
			if err := check(a.provider.DeleteRecord(ctx, r)); err != nil {
				return nil, fmt.Errorf("remove stale %s %s: %w", r.Type, r.Name, err)
			}
		}
	}

	var set []libdns.Record
	for _, rec := range recs {
		r := FromLibdns(rec, a.domain)
		if err := check(a.provider.CreateRecord(ctx, r)); err != nil {
			return set, fmt.Errorf("set %s %s: %w", r.Type, r.Name, err)
		}
		set = append(set, rec)
	}
	return set, nil
}

// DeleteRecords deletes each record. An empty value deletes every value of the
// name and type.
func (a *Adapter) DeleteRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	if err := a.prepare(ctx, zone); err != nil {
		return nil, err
	}
	var deleted []libdns.Record
	for _, rec := range recs {
		r := FromLibdns(rec, a.domain)
		if err := check(a.provider.DeleteRecord(ctx, r)); err != nil {
			return deleted, fmt.Errorf("delete %s %s: %w", r.Type, r.Name, err)
		}
		deleted = append(deleted, rec)
	}
	return deleted, nil
}

// prepare checks the zone and authenticates once.
func (a *Adapter) prepare(ctx context.Context, zone string) error {
	if z := strings.ToLower(strings.TrimSuffix(zone, ".")); z != a.domain {
		return fmt.Errorf("%w: zone %q is not served by this provider (domain %q)", provider.ErrConfiguration, zone, a.domain)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.authed {
		return nil
	}
	ok, err := a.provider.Authenticate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: authentication failed", provider.ErrAuthentication)
	}
	a.authed = true
	return nil
}

// check turns the boolean write contract into an error; libdns has no
// boolean result.
func check(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("provider reported failure")
	}
	return nil
}
