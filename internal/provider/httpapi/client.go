// Package httpapi builds provider requests from an (action, target, data,
// query) tuple and surfaces non-2xx replies as provider.TransportError.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/evanofslack/dnsctl/internal/metrics"
	"github.com/evanofslack/dnsctl/internal/provider"
)

const contentType = "application/x-www-form-urlencoded"

const maxBodySize = 1 << 20

type Client struct {
	http    provider.Doer
	metrics *metrics.Metrics
}

func New(doer provider.Doer, metrics *metrics.Metrics) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{http: doer, metrics: metrics}
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Provider decodes the body into the code/message structure checked by
// provider.Validate.
func (r *Response) Provider() provider.Response {
	return provider.ParseResponse(r.Body)
}

// Request sends data form-urlencoded to target. Query parameters are appended
// to the target URL. A non-2xx reply is returned as *provider.TransportError.
func (c *Client) Request(ctx context.Context, action, target string, data, query url.Values) (*Response, error) {
	tracer := otel.Tracer("dnsctl")
	ctx, span := tracer.Start(ctx, "httpapi.Request")
	defer span.End()

	if action == "" {
		action = http.MethodGet
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	span.SetAttributes(
		attribute.String("http.method", action),
		attribute.String("http.url", redactURL(target)),
	)

	var body io.Reader
	if len(data) > 0 {
		body = strings.NewReader(data.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, action, target, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.IncHTTPRequest(false, 0)
		return nil, &provider.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		span.RecordError(err)
		c.metrics.IncHTTPRequest(false, resp.StatusCode)
		return nil, &provider.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.metrics.IncHTTPRequest(success, resp.StatusCode)
	if !success {
		terr := &provider.TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
		span.SetStatus(codes.Error, terr.Error())
		return nil, terr
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
