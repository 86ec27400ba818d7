package provider

import (
	"fmt"
	"log/slog"
)

// Session records the outcome of Authenticate. DomainID is an opaque success
// marker; providers without a domain id concept store a constant sentinel.
type Session struct {
	domainID string
}

func (s *Session) Establish(domainID string) {
	if s.domainID != "" || domainID == "" {
		return
	}
	s.domainID = domainID
}

func (s *Session) Ready() bool { return s.domainID != "" }

func (s *Session) DomainID() string { return s.domainID }

// Require is the precondition of every record operation.
func (s *Session) Require() error {
	if !s.Ready() {
		return fmt.Errorf("%w: not authenticated, call Authenticate first", ErrAuthentication)
	}
	return nil
}

type Credentials struct {
	Username string
	Password string
	Token    string
}

func (c Credentials) String() string { return "credentials(redacted)" }

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", mask(c.Username)),
		slog.String("password", mask(c.Password)),
		slog.String("token", mask(c.Token)),
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
