// Package cloudflare implements the identifier-based Cloudflare backend on top
// of cloudflare-go.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evanofslack/dnsctl/internal/metrics"
	"github.com/evanofslack/dnsctl/internal/provider"
)

const Name = "cloudflare"

type CloudflareProvider struct {
	client  Client
	domain  string
	ttl     int
	session provider.Session
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(opts provider.Options, deps provider.Deps) (*CloudflareProvider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Require(Name, "auth_token"); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()

	client, err := NewSDKClient(opts.AuthToken, opts.Endpoint, httpClientFor(deps.HTTP))
	if err != nil {
		return nil, err
	}
	return NewWithClient(opts, deps, client)
}

// NewWithClient builds the provider around an existing Client.
func NewWithClient(opts provider.Options, deps provider.Deps, client Client) (*CloudflareProvider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()
	domain := strings.ToLower(strings.TrimSuffix(opts.Domain, "."))

	return &CloudflareProvider{
		client:  client,
		domain:  domain,
		ttl:     opts.TTL,
		log:     deps.Logger.With("provider", Name, "domain", domain),
		metrics: deps.Metrics,
	}, nil
}

// Factory adapts New to provider.Factory.
func Factory(opts provider.Options, deps provider.Deps) (provider.Provider, error) {
	return New(opts, deps)
}

// Authenticate resolves the zone id, which also proves the token can read the
// zone.
func (p *CloudflareProvider) Authenticate(ctx context.Context) (bool, error) {
	if p.session.Ready() {
		return true, nil
	}
	zoneID, err := p.client.ResolveZoneID(ctx, p.domain)
	if err != nil {
		p.metrics.IncDNSRequest("read", p.domain, false)
		p.log.Error("Failed to resolve zone", "error", err)
		if errors.Is(err, provider.ErrAuthentication) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", provider.ErrAuthentication, err)
	}
	p.session.Establish(zoneID)
	p.log.Debug("Session ready", "domain_id", zoneID)
	return true, nil
}

func (p *CloudflareProvider) DomainID() string { return p.session.DomainID() }

func (p *CloudflareProvider) ListRecords(ctx context.Context, filter provider.Filter) ([]provider.Record, error) {
	if err := p.session.Require(); err != nil {
		return nil, err
	}
	start := time.Now()

	rtype := strings.ToUpper(filter.Type)
	name := ""
	if filter.Name != "" {
		name = strings.ToLower(provider.FullName(filter.Name, p.domain))
	}
	found, err := p.client.ListDNSRecords(ctx, p.session.DomainID(), name, rtype, filter.Content)
	if err != nil {
		p.metrics.IncDNSRequest("read", p.domain, false)
		return nil, err
	}

	f := provider.Filter{Type: rtype, Name: name, Content: filter.Content}
	records := make([]provider.Record, 0, len(found))
	for _, r := range found {
		rec := fromResult(r)
		if f.Match(rec) {
			records = append(records, rec)
		}
	}

	p.metrics.IncDNSRequest("read", p.domain, true)
	p.log.Debug("Retrieved DNS records", "count", len(records), "duration", time.Since(start))
	return records, nil
}

// CreateRecord is idempotent: an identical record already present counts as
// created.
func (p *CloudflareProvider) CreateRecord(ctx context.Context, record provider.Record) (bool, error) {
	if err := p.session.Require(); err != nil {
		return false, err
	}
	if record.Content == "" {
		p.log.Error("No value given for content", "type", record.Type, "name", record.Name)
		return false, fmt.Errorf("%w: cannot create a record with no value", provider.ErrValidation)
	}
	return p.create(ctx, record).Outcome(p.log, "create")
}

func (p *CloudflareProvider) create(ctx context.Context, record provider.Record) provider.Result {
	record, err := p.normalize(record)
	if err != nil {
		return provider.Failed(provider.KindValidation, err)
	}
	zoneID := p.session.DomainID()

	existing, err := p.client.ListDNSRecords(ctx, zoneID, record.Name, record.Type, record.Content)
	if err != nil {
		p.metrics.IncDNSRequest("create", p.domain, false)
		return provider.Classify(err)
	}
	for _, r := range existing {
		if fromResult(r).Content == record.Content {
			p.log.Debug("DNS record already exists", "name", record.Name, "type", record.Type)
			return provider.Succeeded()
		}
	}

	p.log.Info("Creating DNS record", "name", record.Name, "type", record.Type, "content", record.Content)
	if err := p.client.CreateDNSRecord(ctx, zoneID, p.toResult(record)); err != nil {
		p.metrics.IncDNSRequest("create", p.domain, false)
		return provider.Classify(err)
	}
	p.metrics.IncDNSRequest("create", p.domain, true)
	return provider.Succeeded()
}

// UpdateRecord updates by identifier, or by the single record matching the
// type and name when no identifier is given.
func (p *CloudflareProvider) UpdateRecord(ctx context.Context, record provider.Record) (bool, error) {
	if err := p.session.Require(); err != nil {
		return false, err
	}
	return p.update(ctx, record).Outcome(p.log, "update")
}

func (p *CloudflareProvider) update(ctx context.Context, record provider.Record) provider.Result {
	if record.ID == "" && record.Type == "" {
		return provider.Failed(provider.KindValidation,
			fmt.Errorf("%w: an identifier or a type is required to update", provider.ErrValidation))
	}
	record, err := p.normalize(record)
	if err != nil {
		return provider.Failed(provider.KindValidation, err)
	}
	zoneID := p.session.DomainID()

	if record.ID == "" {
		matches, err := p.client.ListDNSRecords(ctx, zoneID, record.Name, record.Type, "")
		if err != nil {
			p.metrics.IncDNSRequest("update", p.domain, false)
			return provider.Classify(err)
		}
		switch len(matches) {
		case 0:
			return provider.Failed(provider.KindValidation,
				fmt.Errorf("%w: no %s record named %s to update", provider.ErrValidation, record.Type, record.Name))
		case 1:
			record.ID = matches[0].ID
		default:
			return provider.Failed(provider.KindValidation,
				fmt.Errorf("%w: %d %s records named %s, an identifier is required", provider.ErrValidation, len(matches), record.Type, record.Name))
		}
	}

	p.log.Info("Updating DNS record", "id", record.ID, "name", record.Name, "type", record.Type, "content", record.Content)
	if err := p.client.UpdateDNSRecord(ctx, zoneID, p.toResult(record)); err != nil {
		p.metrics.IncDNSRequest("update", p.domain, false)
		return provider.Classify(err)
	}
	p.metrics.IncDNSRequest("update", p.domain, true)
	return provider.Succeeded()
}

// DeleteRecord deletes by identifier, or every record matching type, name and
// (when given) content. An empty name is the apex. Deleting nothing succeeds.
func (p *CloudflareProvider) DeleteRecord(ctx context.Context, record provider.Record) (bool, error) {
	if err := p.session.Require(); err != nil {
		return false, err
	}
	return p.delete(ctx, record).Outcome(p.log, "delete")
}

func (p *CloudflareProvider) delete(ctx context.Context, record provider.Record) provider.Result {
	if record.ID == "" && record.Type == "" {
		return provider.Failed(provider.KindValidation,
			fmt.Errorf("%w: an identifier or a type is required to delete", provider.ErrValidation))
	}
	record, err := p.normalize(record)
	if err != nil {
		return provider.Failed(provider.KindValidation, err)
	}
	zoneID := p.session.DomainID()

	// an empty name was expanded to the apex, so only that name is matched
	ids := []string{record.ID}
	if record.ID == "" {
		matches, err := p.client.ListDNSRecords(ctx, zoneID, record.Name, record.Type, record.Content)
		if err != nil {
			p.metrics.IncDNSRequest("delete", p.domain, false)
			return provider.Classify(err)
		}
		ids = ids[:0]
		for _, r := range matches {
			if record.Content == "" || r.Content == record.Content {
				ids = append(ids, r.ID)
			}
		}
	}

	for _, id := range ids {
		p.log.Info("Deleting DNS record", "id", id, "name", record.Name, "type", record.Type)
		if err := p.client.DeleteDNSRecord(ctx, zoneID, id); err != nil {
			p.metrics.IncDNSRequest("delete", p.domain, false)
			return provider.Classify(err)
		}
		p.metrics.IncDNSRequest("delete", p.domain, true)
	}
	return provider.Succeeded()
}

func (p *CloudflareProvider) normalize(record provider.Record) (provider.Record, error) {
	return provider.Normalize(record, p.domain)
}

func (p *CloudflareProvider) toResult(r provider.Record) DNSRecordResult {
	ttl := p.ttl
	if r.TTL > 0 {
		ttl = int(r.TTL.Seconds())
	}
	return DNSRecordResult{ID: r.ID, Name: r.Name, Type: r.Type, Content: r.Content, TTL: ttl}
}

func fromResult(r DNSRecordResult) provider.Record {
	return provider.Record{
		ID:      r.ID,
		Type:    strings.ToUpper(r.Type),
		Name:    strings.ToLower(strings.TrimSuffix(r.Name, ".")),
		Content: r.Content,
		TTL:     time.Duration(r.TTL) * time.Second,
	}
}
