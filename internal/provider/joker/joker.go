// Package joker implements the Joker.com DMAPI "nic/replace" backend. The
// service has no record identifiers and no listing call: records are keyed by
// zone, label, type and value, and every write is a declarative replace.
package joker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/evanofslack/dnsctl/internal/metrics"
	"github.com/evanofslack/dnsctl/internal/provider"
	"github.com/evanofslack/dnsctl/internal/provider/httpapi"
)

const (
	Name            = "joker"
	defaultEndpoint = "https://svc.joker.com/nic/replace"
	// Joker keys records by name; the session only needs a non-empty marker.
	domainIDSentinel = "1"
)

type JokerProvider struct {
	domain   string
	creds    provider.Credentials
	endpoint string
	ttl      int
	session  provider.Session
	api      *httpapi.Client
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func New(opts provider.Options, deps provider.Deps) (*JokerProvider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Require(Name, "auth_username", "auth_password"); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	domain := strings.ToLower(strings.TrimSuffix(opts.Domain, "."))

	return &JokerProvider{
		domain:   domain,
		creds:    opts.Credentials(),
		endpoint: endpoint,
		ttl:      opts.TTL,
		api:      httpapi.New(deps.HTTP, deps.Metrics),
		log:      deps.Logger.With("provider", Name, "domain", domain),
		metrics:  deps.Metrics,
	}, nil
}

// Factory adapts New to provider.Factory.
func Factory(opts provider.Options, deps provider.Deps) (provider.Provider, error) {
	return New(opts, deps)
}

// Authenticate has nothing to verify up front: credentials travel with every
// replace call and were checked for presence at construction.
func (p *JokerProvider) Authenticate(ctx context.Context) (bool, error) {
	p.session.Establish(domainIDSentinel)
	p.log.Debug("Session ready", "domain_id", p.session.DomainID())
	return true, nil
}

func (p *JokerProvider) DomainID() string { return p.session.DomainID() }

// ReplacesRecordSets reports that nic/replace sets the whole label/type.
func (p *JokerProvider) ReplacesRecordSets() bool { return true }

// ListRecords returns no records: the replace API has no listing call.
func (p *JokerProvider) ListRecords(ctx context.Context, filter provider.Filter) ([]provider.Record, error) {
	if err := p.session.Require(); err != nil {
		return nil, err
	}
	p.log.Debug("Listing is not supported by this provider, returning no records", "type", filter.Type, "name", filter.Name)
	return []provider.Record{}, nil
}

// CreateRecord upserts the record. An empty value would delete the record on
// the backend, so it is rejected before any request is made.
func (p *JokerProvider) CreateRecord(ctx context.Context, record provider.Record) (bool, error) {
	if err := p.session.Require(); err != nil {
		return false, err
	}
	if record.Content == "" {
		p.log.Error("No value given for content, this would delete the record", "type", record.Type, "name", record.Name)
		return false, fmt.Errorf("%w: cannot create a record with no value", provider.ErrValidation)
	}
	record.ID = ""
	return p.replace(ctx, "create", record).Outcome(p.log, "create")
}

// UpdateRecord replaces the value of the label/type. An empty value is
// rejected like on create; use DeleteRecord to remove a record.
func (p *JokerProvider) UpdateRecord(ctx context.Context, record provider.Record) (bool, error) {
	if err := p.session.Require(); err != nil {
		return false, err
	}
	if record.Content == "" {
		p.log.Error("No value given for content, this would delete the record", "type", record.Type, "name", record.Name)
		return false, fmt.Errorf("%w: cannot update a record to no value", provider.ErrValidation)
	}
	return p.replace(ctx, "update", record).Outcome(p.log, "update")
}

func (p *JokerProvider) DeleteRecord(ctx context.Context, record provider.Record) (bool, error) {
	if err := p.session.Require(); err != nil {
		return false, err
	}
	if record.ID != "" {
		p.log.Warn("Deleting by identifier is not supported by this provider", "identifier", record.ID)
		return false, nil
	}
	record.Content = ""
	return p.replace(ctx, "delete", record).Outcome(p.log, "delete")
}

// replace is the single write path. An empty content deletes the label/type.
func (p *JokerProvider) replace(ctx context.Context, op string, record provider.Record) provider.Result {
	if record.ID != "" {
		return provider.Failed(provider.KindUnsupported, fmt.Errorf("%w: specifying an identifier", provider.ErrUnsupported))
	}
	record, err := provider.Normalize(record, p.domain)
	if err != nil {
		return provider.Failed(provider.KindValidation, err)
	}
	if record.Type == "" {
		return provider.Failed(provider.KindValidation, fmt.Errorf("%w: record type is required", provider.ErrValidation))
	}

	data := url.Values{}
	data.Set("username", p.creds.Username)
	data.Set("password", p.creds.Password)
	data.Set("zone", p.domain)
	data.Set("label", provider.RelativeName(record.Name, p.domain))
	data.Set("type", record.Type)
	data.Set("value", record.Content)
	if ttl := p.ttlFor(record); ttl > 0 {
		data.Set("ttl", strconv.Itoa(ttl))
	}

	p.log.Info("Replacing DNS record", "operation", op, "label", data.Get("label"), "type", record.Type, "value", record.Content)
	resp, err := p.api.Request(ctx, http.MethodPost, p.endpoint, data, nil)
	if err != nil {
		p.metrics.IncDNSRequest(op, p.domain, false)
		return provider.Classify(err)
	}

	var exclude []int
	if op == "delete" {
		exclude = append(exclude, provider.CodeObjectDoesNotExist)
	}
	if err := provider.Validate(resp.Provider(), fmt.Sprintf("%s %s record %s", op, record.Type, record.Name), exclude...); err != nil {
		p.metrics.IncDNSRequest(op, p.domain, false)
		return provider.Failed(provider.KindProvider, err)
	}

	p.metrics.IncDNSRequest(op, p.domain, true)
	p.log.Debug("Replaced DNS record", "operation", op, "response", strings.TrimSpace(string(resp.Body)))
	return provider.Succeeded()
}

func (p *JokerProvider) ttlFor(record provider.Record) int {
	if record.TTL > 0 {
		return int(record.TTL.Seconds())
	}
	return p.ttl
}
