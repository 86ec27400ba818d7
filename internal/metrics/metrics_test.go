package metrics

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	m := New(true)
	m.IncDNSRequest("create", "example.com", true)
	m.IncDNSRequest("delete", "example.com", false)
	m.IncDNSRequest("bogus", "example.com", true)
	m.IncDNSOperation("create", "example.com", "TXT")
	m.IncHTTPRequest(true, 200)
	m.IncCassetteRequest("read", true)
	m.IncCommandRun("create", true)
	m.SetCommandDuration(250 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`dnsctl_dns_requests_total{operation="create",status="success",zone="example.com"} 1`,
		`dnsctl_dns_requests_total{operation="delete",status="failure",zone="example.com"} 1`,
		`dnsctl_dns_operations_total{operation="create",type="TXT",zone="example.com"} 1`,
		`dnsctl_http_requests_total{code="200",status="success"} 1`,
		`dnsctl_cassette_requests_total{operation="read",status="success"} 1`,
		`dnsctl_command_runs_total{command="create",status="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
	if strings.Contains(body, "bogus") {
		t.Error("invalid operation should not be recorded")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.IncDNSRequest("create", "example.com", true)
	m.IncHTTPRequest(false, 500)
	m.SetCommandDuration(time.Second)
}

func TestWriteTextfile(t *testing.T) {
	m := New(true)
	m.IncDNSRequest("read", "example.com", true)

	path := filepath.Join(t.TempDir(), "dnsctl.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dnsctl_dns_requests_total") {
		t.Errorf("textfile missing dns requests metric: %s", data)
	}
}
