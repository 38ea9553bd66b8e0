// Package apiclient implements the mTLS HTTP client of spec.md §4.6:
// upload one or many ARCs as JSON-LD to the downstream ARC store.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

// Config describes the mTLS material and endpoint a Client is built
// from, grounded on the teacher's sinks.TLSConfig shape.
type Config struct {
	APIURL         string
	ClientCertPath string
	ClientKeyPath  string
	CACertPath     string // optional
	RequestTimeout time.Duration
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Status     int
	BodyPrefix string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Status, e.BodyPrefix)
}

// RequestError is returned for any transport-level failure (DNS,
// connection refused, TLS handshake, timeout).
type RequestError struct {
	Cause error
}

func (e *RequestError) Error() string { return fmt.Sprintf("Request error: %v", e.Cause) }
func (e *RequestError) Unwrap() error { return e.Cause }

// ArcRecordStatus is one per-ARC result in an UploadResponse.
type ArcRecordStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // "created" or "updated"
	Timestamp string `json:"timestamp"`
}

// UploadResponse is the typed 2xx response body.
type UploadResponse struct {
	ClientID string            `json:"client_id"`
	Message  string            `json:"message"`
	RDI      string            `json:"rdi"`
	Arcs     []ArcRecordStatus `json:"arcs"`
}

type uploadRequest struct {
	RDI  string            `json:"rdi"`
	Arcs []json.RawMessage `json:"arcs"`
}

// Client issues mTLS-authenticated uploads to the ARC store.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client, failing fast (before any network call) if
// the client certificate, client key, or configured CA file is missing —
// naming the missing file in the returned error. Grounded on
// internal/sinks/common.go's createTLSConfig, extended with the
// fail-fast existence checks the teacher's code skips.
func NewClient(cfg Config) (*Client, error) {
	if err := requireFile(cfg.ClientCertPath, "Client certificate"); err != nil {
		return nil, err
	}
	if err := requireFile(cfg.ClientKeyPath, "Client key"); err != nil {
		return nil, err
	}
	if cfg.CACertPath != "" {
		if err := requireFile(cfg.CACertPath, "CA certificate"); err != nil {
			return nil, err
		}
	}

	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load client cert/key pair: %w", err)
	}

	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate %s", cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.APIURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		},
	}, nil
}

func requireFile(path, label string) error {
	if path == "" {
		return fmt.Errorf("%s not found: no path configured", label)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s not found: %s: %w", label, path, err)
	}
	return nil
}

// CreateOrUpdateArc wraps a single ARC document into the same body
// shape as CreateOrUpdateArcs.
func (c *Client) CreateOrUpdateArc(ctx context.Context, rdi string, arcJSONLD []byte) (*UploadResponse, error) {
	return c.CreateOrUpdateArcs(ctx, rdi, [][]byte{arcJSONLD})
}

// CreateOrUpdateArcs issues POST {base}/v1/arcs with the given ARC JSON-LD
// documents.
func (c *Client) CreateOrUpdateArcs(ctx context.Context, rdi string, arcsJSONLD [][]byte) (*UploadResponse, error) {
	raws := make([]json.RawMessage, len(arcsJSONLD))
	for i, a := range arcsJSONLD {
		raws[i] = a
	}
	body, err := sonic.ConfigStd.Marshal(uploadRequest{RDI: rdi, Arcs: raws})
	if err != nil {
		return nil, fmt.Errorf("encode upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/arcs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		prefix := respBody
		if len(prefix) > 256 {
			prefix = prefix[:256]
		}
		return nil, &HTTPError{Status: resp.StatusCode, BodyPrefix: string(prefix)}
	}

	var out UploadResponse
	if err := sonic.ConfigStd.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out, nil
}

// Close idles down the underlying transport's connection pool, per the
// teacher's scoped-resource convention (internal/sinks/loki_sink.go's
// Close).
func (c *Client) Close() {
	if t, ok := c.http.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
