package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/evanofslack/dnsctl/internal/metrics"
	"github.com/evanofslack/dnsctl/internal/provider"
)

// MockHttpClient implements provider.Doer for testing
type MockHttpClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockHttpClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func TestRequest(t *testing.T) {
	var (
		gotMethod string
		gotCT     string
		gotQuery  url.Values
		gotForm   url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotQuery = r.URL.Query()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		io.WriteString(w, `{"code":1000,"msg":"ok"}`)
	}))
	defer srv.Close()

	c := New(srv.Client(), metrics.New(false))
	data := url.Values{"zone": {"example.com"}, "label": {"_acme-challenge"}}
	query := url.Values{"debug": {"1"}}

	resp, err := c.Request(context.Background(), http.MethodPost, srv.URL+"/nic/replace", data, query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotCT != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", gotCT)
	}
	if gotQuery.Get("debug") != "1" {
		t.Errorf("expected query debug=1, got %v", gotQuery)
	}
	if gotForm.Get("label") != "_acme-challenge" || gotForm.Get("zone") != "example.com" {
		t.Errorf("unexpected form %v", gotForm)
	}

	pr := resp.Provider()
	if pr.Code == nil || *pr.Code != 1000 || pr.Message != "ok" {
		t.Errorf("unexpected provider response %+v", pr)
	}
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		doFunc     func(req *http.Request) (*http.Response, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "server error status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader("boom")),
				}, nil
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "boom",
		},
		{
			name: "unauthorized status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusUnauthorized,
					Body:       io.NopCloser(strings.NewReader("bad credentials")),
				}, nil
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "bad credentials",
		},
		{
			name: "connection refused",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&MockHttpClient{DoFunc: tt.doFunc}, nil)
			_, err := c.Request(context.Background(), http.MethodPost, "https://svc.example.net/replace", url.Values{"a": {"b"}}, nil)
			if !errors.Is(err, provider.ErrTransport) {
				t.Fatalf("expected transport error, got %v", err)
			}
			var terr *provider.TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("expected *provider.TransportError, got %T", err)
			}
			if terr.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, terr.StatusCode)
			}
			if terr.Body != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, terr.Body)
			}
		})
	}
}

func TestRequestWithoutData(t *testing.T) {
	var gotBody []byte
	doer := &MockHttpClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		if req.Body != nil {
			gotBody, _ = io.ReadAll(req.Body)
		}
		if req.URL.RawQuery != "" {
			t.Errorf("expected empty query, got %q", req.URL.RawQuery)
		}
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(strings.NewReader(""))}, nil
	}}

	resp, err := New(doer, nil).Request(context.Background(), "", "https://svc.example.net/list", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotBody) != 0 {
		t.Errorf("expected empty body, got %q", gotBody)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}
