package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is the capability set every DNS backend implements. Mutating
// operations report success as a boolean; a returned error is reserved for
// conditions the caller must see (invalid input, unauthenticated session,
// backend-reported semantic errors).
type Provider interface {
	Authenticate(ctx context.Context) (bool, error)
	ListRecords(ctx context.Context, filter Filter) ([]Record, error)
	CreateRecord(ctx context.Context, record Record) (bool, error)
	UpdateRecord(ctx context.Context, record Record) (bool, error)
	DeleteRecord(ctx context.Context, record Record) (bool, error)
}

// SetReplacer is implemented by providers whose writes replace every value of
// a name and type at once. Such a name and type holds a single value.
type SetReplacer interface {
	ReplacesRecordSets() bool
}

type Record struct {
	ID      string
	Type    string
	Name    string
	Content string
	TTL     time.Duration
}

// Filter selects records by exact match. Empty fields match everything.
type Filter struct {
	Type    string
	Name    string
	Content string
}

func (f Filter) Match(r Record) bool {
	if f.Type != "" && !strings.EqualFold(f.Type, r.Type) {
		return false
	}
	if f.Name != "" && !strings.EqualFold(strings.TrimSuffix(f.Name, "."), strings.TrimSuffix(r.Name, ".")) {
		return false
	}
	if f.Content != "" && f.Content != r.Content {
		return false
	}
	return true
}

// RecordTypes is the fixed set of record types accepted by providers.
var RecordTypes = []string{"A", "AAAA", "CAA", "CNAME", "MX", "NS", "SRV", "TXT"}

func ValidType(rtype string) bool {
	for _, t := range RecordTypes {
		if t == rtype {
			return true
		}
	}
	return false
}

// Normalize prepares a record for a write: it upper-cases the type and
// expands the name to a fully qualified, lowercase name within domain. An
// empty name or "@" is the apex. Filters keep empty as "any name" and are not
// normalized here.
func Normalize(r Record, domain string) (Record, error) {
	r.Type = strings.ToUpper(r.Type)
	if r.Type != "" && !ValidType(r.Type) {
		return r, fmt.Errorf("%w: unknown record type %q", ErrValidation, r.Type)
	}
	if r.Name == "@" {
		r.Name = ""
	}
	r.Name = strings.ToLower(FullName(r.Name, domain))
	return r, nil
}
