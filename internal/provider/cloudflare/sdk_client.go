package cloudflare

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/evanofslack/dnsctl/internal/provider"
)

const perPage = 100

// sdkClient adapts cloudflare-go to Client. Errors are mapped onto the
// provider error taxonomy; there is no other logic here.
type sdkClient struct {
	api *cloudflare.API
}

// NewSDKClient creates a Cloudflare API client for token. An empty endpoint
// keeps the SDK default base URL.
func NewSDKClient(token, endpoint string, httpClient *http.Client) (Client, error) {
	var opts []cloudflare.Option
	if endpoint != "" {
		opts = append(opts, cloudflare.BaseURL(endpoint))
	}
	if httpClient != nil {
		opts = append(opts, cloudflare.HTTPClient(httpClient))
	}
	api, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloudflare client: %v", provider.ErrConfiguration, err)
	}
	return &sdkClient{api: api}, nil
}

func (c *sdkClient) ResolveZoneID(ctx context.Context, zoneName string) (string, error) {
	_, span := otel.Tracer("dnsctl").Start(ctx, "cloudflare.sdk.ResolveZoneID")
	defer span.End()
	span.SetAttributes(attribute.String("zone_name", zoneName))

	id, err := c.api.ZoneIDByName(zoneName)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: no zone found for %q, check that the zone exists and the API token has Zone:Read permission: %v",
			provider.ErrAuthentication, zoneName, err)
	}
	span.SetAttributes(attribute.String("zone_id", id))
	return id, nil
}

func (c *sdkClient) ListDNSRecords(ctx context.Context, zoneID, name, recordType, content string) ([]DNSRecordResult, error) {
	ctx, span := otel.Tracer("dnsctl").Start(ctx, "cloudflare.sdk.ListDNSRecords")
	defer span.End()
	span.SetAttributes(
		attribute.String("zone_id", zoneID),
		attribute.String("record_name", name),
		attribute.String("record_type", recordType),
	)

	var results []DNSRecordResult
	page := 1
	for {
		params := cloudflare.ListDNSRecordsParams{
			Type:    recordType,
			Name:    name,
			Content: content,
			ResultInfo: cloudflare.ResultInfo{
				Page:    page,
				PerPage: perPage,
			},
		}
		records, info, err := c.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), params)
		if err != nil {
			span.RecordError(err)
			return nil, &provider.TransportError{Err: fmt.Errorf("failed to list DNS records: %w", err)}
		}
		for _, r := range records {
			results = append(results, DNSRecordResult{
				ID:      r.ID,
				Name:    r.Name,
				Type:    r.Type,
				Content: r.Content,
				TTL:     r.TTL,
			})
		}
		if info == nil || page >= info.TotalPages {
			break
		}
		page++
	}

	span.SetAttributes(attribute.Int("record_count", len(results)))
	return results, nil
}

func (c *sdkClient) CreateDNSRecord(ctx context.Context, zoneID string, record DNSRecordResult) error {
	ctx, span := otel.Tracer("dnsctl").Start(ctx, "cloudflare.sdk.CreateDNSRecord")
	defer span.End()
	span.SetAttributes(recordAttributes(zoneID, record)...)

	_, err := c.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     sdkTTL(record.TTL),
	})
	if err != nil {
		span.RecordError(err)
		return &provider.TransportError{Err: fmt.Errorf("failed to create DNS record %s (%s): %w", record.Name, record.Type, err)}
	}
	return nil
}

func (c *sdkClient) UpdateDNSRecord(ctx context.Context, zoneID string, record DNSRecordResult) error {
	ctx, span := otel.Tracer("dnsctl").Start(ctx, "cloudflare.sdk.UpdateDNSRecord")
	defer span.End()
	span.SetAttributes(recordAttributes(zoneID, record)...)

	_, err := c.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     sdkTTL(record.TTL),
	})
	if err != nil {
		span.RecordError(err)
		return &provider.TransportError{Err: fmt.Errorf("failed to update DNS record %s (%s, id=%s): %w", record.Name, record.Type, record.ID, err)}
	}
	return nil
}

func (c *sdkClient) DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error {
	ctx, span := otel.Tracer("dnsctl").Start(ctx, "cloudflare.sdk.DeleteDNSRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("zone_id", zoneID),
		attribute.String("record_id", recordID),
	)

	if err := c.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), recordID); err != nil {
		span.RecordError(err)
		return &provider.TransportError{Err: fmt.Errorf("failed to delete DNS record (id=%s): %w", recordID, err)}
	}
	return nil
}

func recordAttributes(zoneID string, r DNSRecordResult) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("zone_id", zoneID),
		attribute.String("record_id", r.ID),
		attribute.String("record_name", r.Name),
		attribute.String("record_type", r.Type),
		attribute.Int("record_ttl", r.TTL),
	}
}

// sdkTTL maps an unset TTL to Cloudflare's "automatic" value.
func sdkTTL(ttl int) int {
	if ttl <= 0 {
		return 1
	}
	return ttl
}

// doerTransport lets a provider.Doer (such as the cassette recorder) serve as
// the SDK's round tripper.
type doerTransport struct {
	doer provider.Doer
}

func (t doerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.doer.Do(req)
}

func httpClientFor(doer provider.Doer) *http.Client {
	if c, ok := doer.(*http.Client); ok {
		return c
	}
	return &http.Client{Transport: doerTransport{doer: doer}}
}
