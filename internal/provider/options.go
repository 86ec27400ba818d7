package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Options are the recognized provider construction options.
type Options struct {
	Domain       string
	AuthUsername string
	AuthPassword string
	AuthToken    string
	Endpoint     string
	TTL          int
	Timeout      time.Duration
}

// Lookup returns the option value for a key such as auth_username, or "" when the key
// is unknown or unset.
func (o Options) Lookup(key string) string {
	switch strings.ReplaceAll(strings.ToLower(key), "-", "_") {
	case "domain":
		return o.Domain
	case "auth_username":
		return o.AuthUsername
	case "auth_password":
		return o.AuthPassword
	case "auth_token":
		return o.AuthToken
	case "endpoint":
		return o.Endpoint
	case "ttl":
		if o.TTL > 0 {
			return strconv.Itoa(o.TTL)
		}
	}
	return ""
}

func (o Options) Credentials() Credentials {
	return Credentials{Username: o.AuthUsername, Password: o.AuthPassword, Token: o.AuthToken}
}

// Validate checks the options shared by every provider.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Domain) == "" {
		return fmt.Errorf("%w: domain is required", ErrConfiguration)
	}
	if o.TTL < 0 {
		return fmt.Errorf("%w: ttl must be positive, got %d", ErrConfiguration, o.TTL)
	}
	return nil
}

// Require fails with ErrConfiguration unless every key has a value.
func (o Options) Require(provider string, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if o.Lookup(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", ErrConfiguration, provider, strings.Join(missing, ", "))
	}
	return nil
}
