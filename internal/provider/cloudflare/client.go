package cloudflare

import "context"

// DNSRecordResult is a DNS record as returned by the Cloudflare API.
type DNSRecordResult struct {
	ID      string
	Name    string
	Type    string
	Content string
	TTL     int
}

// Client abstracts the Cloudflare API. The real implementation wraps the
// cloudflare-go SDK; tests inject an in-memory zone through NewWithClient.
type Client interface {
	// ResolveZoneID looks up the zone ID for a zone name. A token without
	// access to the zone fails here.
	ResolveZoneID(ctx context.Context, zoneName string) (string, error)

	// ListDNSRecords returns records matching name, type and content. Empty
	// arguments match everything.
	ListDNSRecords(ctx context.Context, zoneID, name, recordType, content string) ([]DNSRecordResult, error)

	CreateDNSRecord(ctx context.Context, zoneID string, record DNSRecordResult) error
	UpdateDNSRecord(ctx context.Context, zoneID string, record DNSRecordResult) error
	DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error
}
