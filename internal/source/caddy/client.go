// Package caddy reads the hosts served by a running Caddy instance from its
// admin API, as a desired-state source for sync.
package caddy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/evanofslack/dnsctl/internal/provider"
)

type Client interface {
	Domains(ctx context.Context) ([]DomainConfig, error)
}

type client struct {
	adminURL string
	http     provider.Doer
	log      *slog.Logger
}

func New(adminURL string, doer provider.Doer, log *slog.Logger) Client {
	if doer == nil {
		doer = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &client{
		adminURL: strings.TrimSuffix(adminURL, "/"),
		http:     doer,
		log:      log,
	}
}

func (c *client) Domains(ctx context.Context) ([]DomainConfig, error) {
	config, err := c.getConfiguration(ctx)
	if err != nil {
		return []DomainConfig{}, err
	}
	return c.extractDomains(config), nil
}

func (c *client) getConfiguration(ctx context.Context) (Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminURL+"/config/", nil)
	if err != nil {
		return Config{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Config{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Config{}, fmt.Errorf("caddy api request, status=%d", resp.StatusCode)
	}

	var config Config
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return Config{}, fmt.Errorf("parse caddy config, err=%w", err)
	}
	return config, nil
}

func (c *client) extractDomains(config Config) []DomainConfig {
	domains := []DomainConfig{}
	for _, server := range config.Apps.HTTP.Servers {
		for _, route := range server.Routes {
			for _, match := range route.Match {
				for _, host := range match.Host {
					c.processHandlers(host, route.Handle, &domains)
				}
			}
		}
	}
	return domains
}

func (c *client) processHandlers(parentHost string, handlers []Handler, domains *[]DomainConfig) {
	for _, handler := range handlers {
		c.log.Debug("Processing handler", "handler", handler.Handler, "upstreams", handler.Upstreams)

		// Track current host context through nested routes
		currentHost := parentHost
		if handler.Handler == "subroute" {
			for _, nestedRoute := range handler.Routes {
				for _, match := range nestedRoute.Match {
					if len(match.Host) > 0 {
						currentHost = match.Host[0]
					}
				}
				c.processHandlers(currentHost, nestedRoute.Handle, domains)
			}
		}

		if handler.Handler == "reverse_proxy" && len(handler.Upstreams) > 0 {
			*domains = append(*domains, DomainConfig{
				Host:     currentHost,
				Upstream: handler.Upstreams[0].Dial,
			})
		}
	}
}

// Records maps the hosts inside zone to records pointing at target: A or
// AAAA when target is an address, CNAME otherwise. Wildcard hosts and hosts
// outside zone are skipped; each host yields at most one record.
func Records(domains []DomainConfig, zone, target string, ttl time.Duration) []provider.Record {
	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	rtype := RecordType(target)

	seen := make(map[string]bool)
	var records []provider.Record
	for _, d := range domains {
		host := strings.ToLower(strings.TrimSuffix(d.Host, "."))
		if host == "" || strings.Contains(host, "*") || !belongsToZone(host, zone) || seen[host] {
			continue
		}
		seen[host] = true
		records = append(records, provider.Record{
			Name:    host,
			Type:    rtype,
			Content: target,
			TTL:     ttl,
		})
	}
	return records
}

func belongsToZone(host, zone string) bool {
	// Match exact zone or subdomains with dot separator
	return host == zone || strings.HasSuffix(host, "."+zone)
}

// RecordType returns the record type that points a name at target.
func RecordType(target string) string {
	addr, err := netip.ParseAddr(strings.Trim(target, "[]"))
	if err != nil {
		return "CNAME"
	}
	if addr.Unmap().Is4() {
		return "A"
	}
	return "AAAA"
}
