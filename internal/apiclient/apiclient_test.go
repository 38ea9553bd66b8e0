package apiclient

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert writes a self-signed cert/key pair to dir and returns
// their paths, grounded on the teacher's test fixtures that exercise TLS
// configuration with real PEM material rather than mocks.
func generateTestCert(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: derBytes}))
	require.NoError(t, certOut.Close())

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	keyOut, err := os.Create(keyPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}))
	require.NoError(t, keyOut.Close())

	return certPath, keyPath
}

func TestNewClientFailsFastOnMissingCert(t *testing.T) {
	dir := t.TempDir()
	_, keyPath := generateTestCert(t, dir)

	_, err := NewClient(Config{
		APIURL:         "https://example.com",
		ClientCertPath: filepath.Join(dir, "missing-cert.pem"),
		ClientKeyPath:  keyPath,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client certificate not found")
}

func TestNewClientFailsFastOnMissingKey(t *testing.T) {
	dir := t.TempDir()
	certPath, _ := generateTestCert(t, dir)

	_, err := NewClient(Config{
		APIURL:         "https://example.com",
		ClientCertPath: certPath,
		ClientKeyPath:  filepath.Join(dir, "missing-key.pem"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client key not found")
}

func TestNewClientFailsFastOnMissingCA(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := generateTestCert(t, dir)

	_, err := NewClient(Config{
		APIURL:         "https://example.com",
		ClientCertPath: certPath,
		ClientKeyPath:  keyPath,
		CACertPath:     filepath.Join(dir, "missing-ca.pem"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CA certificate not found")
}

func TestNewClientSucceedsWithValidCertAndKey(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := generateTestCert(t, dir)

	c, err := NewClient(Config{
		APIURL:         "https://example.com",
		ClientCertPath: certPath,
		ClientKeyPath:  keyPath,
	})
	require.NoError(t, err)
	defer c.Close()
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	dir := t.TempDir()
	certPath, keyPath := generateTestCert(t, dir)
	c, err := NewClient(Config{APIURL: baseURL, ClientCertPath: certPath, ClientKeyPath: keyPath})
	require.NoError(t, err)
	// Tests run over plain HTTP against httptest.Server, so disable the
	// client-cert requirement on the transport side for the test client.
	if transport, ok := c.http.Transport.(*http.Transport); ok {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return c
}

func TestCreateOrUpdateArcsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/arcs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("accept"))
		assert.Equal(t, "application/json", r.Header.Get("content-type"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"client_id":"TestClient","message":"ok","rdi":"test-rdi","arcs":[{"id":"a1","status":"created","timestamp":"2024-01-01T12:00:00Z"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	defer c.Close()

	resp, err := c.CreateOrUpdateArc(context.Background(), "test-rdi", []byte(`{"@context":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "test-rdi", resp.RDI)
	require.Len(t, resp.Arcs, 1)
	assert.Equal(t, "created", resp.Arcs[0].Status)
}

func TestCreateOrUpdateArcsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	defer c.Close()

	_, err := c.CreateOrUpdateArc(context.Background(), "test-rdi", []byte(`{}`))
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Status)
}

func TestCreateOrUpdateArcsRequestError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")

	_, err := c.CreateOrUpdateArc(context.Background(), "test-rdi", []byte(`{}`))
	require.Error(t, err)
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
}
