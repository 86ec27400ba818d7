package provider

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestRelativeName(t *testing.T) {
	tests := []struct {
		fqdn   string
		domain string
		want   string
	}{
		{"_acme-challenge.example.com", "example.com", "_acme-challenge"},
		{"a.b.example.com", "example.com", "a.b"},
		{"www.example.com.", "example.com", "www"},
		{"WWW.EXAMPLE.COM", "example.com", "WWW"},
		{"example.com", "example.com", ""},
		{"example.com.", "example.com", ""},
		{"other.org", "example.com", "other.org"},
		{"notexample.com", "example.com", "notexample.com"},
		{"www", "example.com", "www"},
	}
	for _, tt := range tests {
		t.Run(tt.fqdn, func(t *testing.T) {
			if got := RelativeName(tt.fqdn, tt.domain); got != tt.want {
				t.Errorf("RelativeName(%q, %q) = %q, want %q", tt.fqdn, tt.domain, got, tt.want)
			}
		})
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"", "example.com"},
		{"www", "www.example.com"},
		{"www.example.com", "www.example.com"},
		{"www.example.com.", "www.example.com"},
		{"a.b", "a.b.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := FullName(tt.label, "example.com"); got != tt.want {
				t.Errorf("FullName(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestNameRoundTrip(t *testing.T) {
	domains := []string{"example.com", "sub.example.org", "reachlike.ca"}
	labels := []string{"", "www", "_acme-challenge", "a.b.c", "mail-1"}
	for _, d := range domains {
		for _, l := range labels {
			if got := RelativeName(FullName(l, d), d); got != l {
				t.Errorf("RelativeName(FullName(%q, %q)) = %q", l, d, got)
			}
			full := FullName(l, d)
			if got := FullName(RelativeName(full, d), d); got != full {
				t.Errorf("FullName(RelativeName(%q)) = %q", full, got)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	code := func(c int) *int { return &c }

	tests := []struct {
		name     string
		resp     Response
		exclude  []int
		wantErr  bool
		wantCode int
	}{
		{"no code", Response{}, nil, false, 0},
		{"success code", Response{Code: code(1000)}, nil, false, 0},
		{"below threshold", Response{Code: code(404), Message: "not found"}, []int{404}, false, 0},
		{"excluded", Response{Code: code(2303), Message: "gone"}, []int{2303}, false, 0},
		{"error", Response{Code: code(4001), Message: "quota exceeded"}, []int{404}, true, 4001},
		{"threshold", Response{Code: code(2000), Message: "unknown"}, nil, true, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.resp, "create record", tt.exclude...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProviderError, got %T", err)
			}
			if perr.Code != tt.wantCode || perr.Message != tt.resp.Message || perr.Context != "create record" {
				t.Errorf("unexpected error %+v", perr)
			}
			if !strings.Contains(err.Error(), tt.resp.Message) {
				t.Errorf("error %q should contain message %q", err, tt.resp.Message)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"json", `{"code":2303,"msg":"Object does not exist"}`, 2303, "Object does not exist"},
		{"headers", "Status-Code: 2400\nStatus-Text: Command failed\n\n", 2400, "Command failed"},
		{"opaque", "OK", -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ParseResponse([]byte(tt.body))
			if tt.wantCode < 0 {
				if resp.Code != nil {
					t.Fatalf("expected no code, got %d", *resp.Code)
				}
				return
			}
			if resp.Code == nil || *resp.Code != tt.wantCode {
				t.Fatalf("unexpected code %v", resp.Code)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestClassifyAndOutcome(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantOK   bool
		wantErr  bool
	}{
		{"success", nil, KindNone, true, false},
		{"transport", &TransportError{StatusCode: 500, Body: "boom"}, KindTransport, false, false},
		{"unsupported", fmt.Errorf("%w: by identifier", ErrUnsupported), KindUnsupported, false, false},
		{"validation", fmt.Errorf("%w: bad type", ErrValidation), KindValidation, false, true},
		{"provider", fmt.Errorf("wrapped: %w", &ProviderError{Code: 2400}), KindProvider, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Classify(tt.err)
			if r.Kind != tt.wantKind {
				t.Fatalf("Classify() kind = %s, want %s", r.Kind, tt.wantKind)
			}
			ok, err := r.Outcome(log, "create")
			if ok != tt.wantOK || (err != nil) != tt.wantErr {
				t.Errorf("Outcome() = %v, %v", ok, err)
			}
		})
	}
	if !strings.Contains(logs.String(), "boom") {
		t.Errorf("expected transport body to be logged: %s", logs.String())
	}
}

func TestSession(t *testing.T) {
	var s Session
	if s.Ready() {
		t.Fatal("new session must not be ready")
	}
	if err := s.Require(); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	s.Establish("zone-1")
	s.Establish("zone-2")
	if !s.Ready() || s.DomainID() != "zone-1" {
		t.Fatalf("session not established once: %q", s.DomainID())
	}
}

func TestCredentialsMasked(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	creds := Credentials{Username: "alice", Password: "hunter2", Token: "tok"}
	log.Info("configured", "credentials", creds)

	out := logs.String() + fmt.Sprint(creds)
	for _, secret := range []string{"alice", "hunter2", "tok\""} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked: %s", secret, out)
		}
	}
}

func TestOptions(t *testing.T) {
	opts := Options{Domain: "example.com", AuthUsername: "user", TTL: 300}
	if opts.Lookup("auth-username") != "user" || opts.Lookup("ttl") != "300" {
		t.Errorf("unexpected lookups")
	}
	if opts.Lookup("unknown") != "" || opts.Lookup("auth_password") != "" {
		t.Errorf("expected empty lookups for unset keys")
	}
	if err := opts.Require("joker", "auth_username", "auth_password"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	} else if !strings.Contains(err.Error(), "auth_password") {
		t.Errorf("error should name the missing key: %v", err)
	}
	if err := (Options{Domain: "example.com", TTL: -1}).Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for negative ttl, got %v", err)
	}
}

func TestFilterMatch(t *testing.T) {
	r := Record{Type: "TXT", Name: "a.example.com", Content: "v"}
	tests := []struct {
		filter Filter
		want   bool
	}{
		{Filter{}, true},
		{Filter{Type: "txt"}, true},
		{Filter{Type: "A"}, false},
		{Filter{Name: "a.example.com."}, true},
		{Filter{Name: "b.example.com"}, false},
		{Filter{Type: "TXT", Name: "a.example.com", Content: "v"}, true},
		{Filter{Content: "w"}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(r); got != tt.want {
			t.Errorf("%+v.Match() = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      Record
		want    Record
		wantErr bool
	}{
		{Record{Type: "txt", Name: ""}, Record{Type: "TXT", Name: "example.com"}, false},
		{Record{Type: "TXT", Name: "@"}, Record{Type: "TXT", Name: "example.com"}, false},
		{Record{Type: "A", Name: "WWW"}, Record{Type: "A", Name: "www.example.com"}, false},
		{Record{Type: "A", Name: "www.example.com."}, Record{Type: "A", Name: "www.example.com"}, false},
		{Record{Type: "BOGUS", Name: "x"}, Record{}, true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in, "example.com")
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Normalize(%+v) expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, %v, want %+v", tt.in, got, err, tt.want)
		}
	}
}

type stubProvider struct{ Provider }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	factory := func(opts Options, deps Deps) (Provider, error) {
		if deps.Logger == nil || deps.HTTP == nil {
			t.Error("expected defaulted deps")
		}
		return stubProvider{}, nil
	}
	if err := r.Register("stub", factory); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := r.Register("stub", factory); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if _, err := r.New("stub", Options{Domain: "example.com"}, Deps{}); err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := r.New("stub", Options{}, Deps{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for missing domain, got %v", err)
	}
	if _, err := r.New("missing", Options{Domain: "example.com"}, Deps{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown provider, got %v", err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "stub" {
		t.Errorf("unexpected names %v", names)
	}
}
