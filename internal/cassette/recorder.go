// Package cassette records provider HTTP interactions into a badger store and
// replays them, so provider behavior can be exercised without the network.
// Credentials are redacted before anything is hashed or stored.
package cassette

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evanofslack/dnsctl/internal/provider"
)

const (
	ModeRecord = "record"
	ModeReplay = "replay"

	redacted = "REDACTED"
)

var ErrNoInteraction = errors.New("no recorded interaction")

// Recorder is a provider.Doer. In record mode requests go to next and the
// exchange is stored; in replay mode the stored response is returned.
type Recorder struct {
	mode    string
	store   Store
	next    provider.Doer
	secrets map[string]bool
	log     *slog.Logger
}

func NewRecorder(mode string, store Store, next provider.Doer, secrets []string, log *slog.Logger) (*Recorder, error) {
	if mode != ModeRecord && mode != ModeReplay {
		return nil, fmt.Errorf("%w: unknown cassette mode %q", provider.ErrConfiguration, mode)
	}
	if next == nil {
		next = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	s := make(map[string]bool, len(secrets))
	for _, k := range secrets {
		s[strings.ToLower(k)] = true
	}
	return &Recorder{mode: mode, store: store, next: next, secrets: s, log: log.With("cassette", mode)}, nil
}

func (r *Recorder) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	in := Interaction{
		Method:      req.Method,
		URL:         r.redactURL(req.URL),
		RequestBody: r.redactBody(body),
	}
	key := Key(in)

	if r.mode == ModeReplay {
		return r.replay(req.Context(), req, key)
	}
	return r.record(req, key, in)
}

func (r *Recorder) replay(ctx context.Context, req *http.Request, key string) (*http.Response, error) {
	in, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cassette lookup: %w", err)
	}
	if !found {
		r.log.Warn("No recorded interaction", "method", req.Method, "url", r.redactURL(req.URL))
		return nil, fmt.Errorf("%w for %s %s", ErrNoInteraction, req.Method, r.redactURL(req.URL))
	}
	r.log.Debug("Replaying interaction", "method", in.Method, "url", in.URL, "status", in.StatusCode)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", in.StatusCode, http.StatusText(in.StatusCode)),
		StatusCode:    in.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        in.Header.Clone(),
		Body:          io.NopCloser(strings.NewReader(in.Body)),
		ContentLength: int64(len(in.Body)),
		Request:       req,
	}, nil
}

func (r *Recorder) record(req *http.Request, key string, in Interaction) (*http.Response, error) {
	resp, err := r.next.Do(req)
	if err != nil {
		return nil, err
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	in.StatusCode = resp.StatusCode
	in.Header = resp.Header.Clone()
	in.Header.Del("Set-Cookie")
	in.Body = string(respBody)
	in.RecordedAt = time.Now().UTC()

	if err := r.store.Put(req.Context(), key, in); err != nil {
		r.log.Error("Failed to store interaction", "url", in.URL, "error", err)
	} else {
		r.log.Debug("Recorded interaction", "method", in.Method, "url", in.URL, "status", in.StatusCode)
	}
	return resp, nil
}

// Key identifies an interaction by its redacted method, URL and body.
func Key(in Interaction) string {
	sum := sha256.Sum256([]byte(in.Method + " " + in.URL + "\n" + in.RequestBody))
	return hex.EncodeToString(sum[:])
}

func (r *Recorder) redactURL(u *url.URL) string {
	c := *u
	c.User = nil
	if c.RawQuery != "" {
		c.RawQuery = r.redactValues(c.Query()).Encode()
	}
	return c.String()
}

// redactBody masks secret fields of a form body. Other bodies are kept as is.
func (r *Recorder) redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	values, err := url.ParseQuery(string(body))
	if err != nil || !r.hasSecret(values) {
		return string(body)
	}
	return r.redactValues(values).Encode()
}

func (r *Recorder) hasSecret(values url.Values) bool {
	for k := range values {
		if r.secrets[strings.ToLower(k)] {
			return true
		}
	}
	return false
}

func (r *Recorder) redactValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		if r.secrets[strings.ToLower(k)] {
			out[k] = []string{redacted}
			continue
		}
		out[k] = v
	}
	return out
}
