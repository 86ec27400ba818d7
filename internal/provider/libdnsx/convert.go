package libdnsx

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/libdns/libdns"

	"github.com/evanofslack/dnsctl/internal/provider"
)

// FromLibdns converts a libdns record, whose name is relative to zone, to a
// provider record with a fully qualified name.
func FromLibdns(r libdns.Record, zone string) provider.Record {
	rr := r.RR()
	name := rr.Name
	if name == "@" {
		name = ""
	}
	return provider.Record{
		Name:    strings.ToLower(provider.FullName(name, zone)),
		Type:    strings.ToUpper(rr.Type),
		Content: rr.Data,
		TTL:     rr.TTL,
	}
}

// ToLibdns converts a provider record to the typed libdns record for its type,
// falling back to a raw libdns.RR for types without a dedicated struct here.
func ToLibdns(r provider.Record, zone string) (libdns.Record, error) {
	name := provider.RelativeName(r.Name, zone)
	if name == "" {
		name = "@"
	}
	switch strings.ToUpper(r.Type) {
	case "A", "AAAA":
		addr, err := netip.ParseAddr(r.Content)
		if err != nil {
			return nil, fmt.Errorf("fail parse ip addr %s, err=%w", r.Content, err)
		}
		return libdns.Address{Name: name, IP: addr, TTL: r.TTL}, nil
	case "CNAME":
		return libdns.CNAME{Name: name, Target: r.Content, TTL: r.TTL}, nil
	case "TXT":
		return libdns.TXT{Name: name, Text: r.Content, TTL: r.TTL}, nil
	case "":
		return nil, fmt.Errorf("record %s has no type", r.Name)
	default:
		return libdns.RR{Name: name, Type: strings.ToUpper(r.Type), Data: r.Content, TTL: r.TTL}, nil
	}
}
