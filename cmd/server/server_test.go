package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nickyhof/CommitView"
	"github.com/nickyhof/CommitView/config"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/memdb"
	"github.com/nickyhof/CommitView/plugin"
	"github.com/nickyhof/CommitView/ps"
)

const salesCSV = "region,product,qty,price\nnorth,apple,3,1.5\nsouth,apple,5,1.25\nnorth,pear,2,2.0\n"

func newTestInstance(t *testing.T) (*CommitView.Instance, *ps.Persistence) {
	t.Helper()
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	return CommitView.Open(memdb.New(), persistence), persistence
}

func setupTestServer(t *testing.T) (*Server, func()) {
	instance, _ := newTestInstance(t)
	identity := core.Identity{Name: "test", Email: "test@test.com"}

	server := NewServer(instance, identity)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, func() {
		server.Stop()
	}
}

func writeSales(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}
	return path
}

// client is one connection that separates pushed view messages from
// request responses.
type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
	views  []Response
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *client) sendLine(line string) Response {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("Failed to send %q: %v", line, err)
	}
	return c.readResponse()
}

func (c *client) send(req Request) Response {
	c.t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		c.t.Fatalf("Failed to encode request: %v", err)
	}
	return c.sendLine(string(data))
}

// readResponse returns the next line that is not a view message, keeping
// the view messages read on the way.
func (c *client) readResponse() Response {
	c.t.Helper()
	for {
		resp := c.readLine()
		if resp.Type == "view" || resp.Type == "resize" {
			c.views = append(c.views, resp)
			continue
		}
		return resp
	}
}

func (c *client) readLine() Response {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("Failed to read response: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		c.t.Fatalf("Failed to parse response %q: %v", line, err)
	}
	return resp
}

// waitView reads until a view message arrives.
func (c *client) waitView() plugin.ViewResult {
	c.t.Helper()
	for {
		resp := c.readLine()
		if resp.Type == "view" {
			c.views = append(c.views, resp)
			return c.lastView()
		}
	}
}

func (c *client) lastView() plugin.ViewResult {
	c.t.Helper()
	if len(c.views) == 0 {
		c.t.Fatal("Expected a view message")
	}
	resp := c.views[len(c.views)-1]
	if !resp.Success {
		c.t.Fatalf("View failed: %s", resp.Error)
	}
	var view plugin.ViewResult
	if err := json.Unmarshal(resp.Result, &view); err != nil {
		c.t.Fatalf("Failed to parse view: %v", err)
	}
	return view
}

func mustSucceed(t *testing.T, resp Response) {
	t.Helper()
	if !resp.Success {
		t.Fatalf("Request %s failed: %s", resp.Type, resp.Error)
	}
}

func TestServerStartStop(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if server.TLSEnabled() {
		t.Error("Expected TLS to be disabled")
	}
}

func TestServerStopIsIdempotent(t *testing.T) {
	server, _ := setupTestServer(t)
	if err := server.Stop(); err != nil {
		t.Errorf("First stop failed: %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Errorf("Second stop failed: %v", err)
	}
}

func TestServerLoadRendersView(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	c := dial(t, server.Addr())
	resp := c.send(Request{Op: OpLoad, Path: writeSales(t)})
	mustSucceed(t, resp)
	if resp.Type != OpLoad {
		t.Errorf("Expected load type, got: %s", resp.Type)
	}

	var loaded LoadResponse
	if err := json.Unmarshal(resp.Result, &loaded); err != nil {
		t.Fatalf("Failed to parse load result: %v", err)
	}
	if loaded.Rows != 3 {
		t.Errorf("Expected 3 rows, got %d", loaded.Rows)
	}

	view := c.lastView()
	want := []string{"region", "product", "qty", "price"}
	if strings.Join(view.Columns, ",") != strings.Join(want, ",") {
		t.Errorf("Expected columns %v, got %v", want, view.Columns)
	}
	if len(view.Rows) != 3 {
		t.Errorf("Expected 3 rendered rows, got %d", len(view.Rows))
	}
}

func TestServerPivotAndFilter(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	c := dial(t, server.Addr())
	mustSucceed(t, c.send(Request{Op: OpLoad, Path: writeSales(t)}))
	mustSucceed(t, c.send(Request{Op: OpPivot, Column: "region"}))
	mustSucceed(t, c.send(Request{Op: OpFilter, Value: "qty > 2"}))
	mustSucceed(t, c.send(Request{Op: OpRender}))

	view := c.lastView()
	if len(view.Rows) != 2 {
		t.Errorf("Expected 2 regions, got %d", len(view.Rows))
	}
	if !view.Force {
		t.Error("Expected an explicit render to be forced")
	}

	resp := c.send(Request{Op: OpSave})
	mustSucceed(t, resp)
	var saved map[string]string
	if err := json.Unmarshal(resp.Result, &saved); err != nil {
		t.Fatalf("Failed to parse saved attributes: %v", err)
	}
	if saved["row-pivots"] != `["region"]` {
		t.Errorf("Expected region pivot, got %q", saved["row-pivots"])
	}
	if _, ok := saved["id"]; ok {
		t.Error("Expected id to be left out of saved attributes")
	}
}

func TestServerInvalidFilter(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	c := dial(t, server.Addr())
	mustSucceed(t, c.send(Request{Op: OpLoad, Path: writeSales(t)}))

	resp := c.send(Request{Op: OpFilter, Value: "qty 5"})
	if resp.Success {
		t.Error("Expected invalid filter to fail")
	}
}

func TestServerInvalidRequest(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	c := dial(t, server.Addr())
	resp := c.sendLine("SELECT * FROM sales")
	if resp.Success {
		t.Error("Expected failure for a non-JSON request")
	}
	if resp.Error == "" {
		t.Error("Expected error message")
	}

	resp = c.send(Request{Op: "explode"})
	if resp.Success {
		t.Error("Expected failure for an unknown op")
	}
	if !strings.Contains(resp.Error, "unknown op") {
		t.Errorf("Expected 'unknown op' error, got: %s", resp.Error)
	}
}

func TestServerPersistentConnection(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	c := dial(t, server.Addr())
	requests := []Request{
		{Op: OpLoad, Path: writeSales(t)},
		{Op: OpSet, Name: "sort", Value: `["qty"]`},
		{Op: OpToggle, Column: "price"},
		{Op: OpAggregate, Column: "qty", Value: "avg"},
		{Op: OpPivot, Column: "product", Target: "column-pivots"},
		{Op: OpUnpivot, Target: "column-pivots", Index: 0},
		{Op: OpRender},
	}
	for _, req := range requests {
		resp := c.send(req)
		if !resp.Success {
			t.Errorf("Request %s failed: %s", req.Op, resp.Error)
		}
	}

	view := c.lastView()
	for _, col := range view.Columns {
		if col == "price" {
			t.Error("Expected price to be hidden after toggle")
		}
	}
}

func TestServerSlavesFollowLoad(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	watcher := dial(t, server.Addr())
	loader := dial(t, server.Addr())

	// Make sure the watcher's viewer is attached before loading.
	mustSucceed(t, watcher.send(Request{Op: OpLayouts}))
	mustSucceed(t, loader.send(Request{Op: OpLoad, Path: writeSales(t)}))

	view := watcher.waitView()
	if len(view.Rows) != 3 {
		t.Errorf("Expected watcher to see 3 rows, got %d", len(view.Rows))
	}

	// The watcher's configuration is its own.
	mustSucceed(t, watcher.send(Request{Op: OpPivot, Column: "region"}))
	resp := loader.send(Request{Op: OpSave})
	mustSucceed(t, resp)
	var saved map[string]string
	json.Unmarshal(resp.Result, &saved)
	if saved["row-pivots"] != "[]" {
		t.Errorf("Expected loader to stay unpivoted, got %q", saved["row-pivots"])
	}
}

func TestServerLayouts(t *testing.T) {
	instance, persistence := newTestInstance(t)
	server := NewServer(instance, core.Identity{Name: "Default User", Email: "default@test.com"})
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	c := dial(t, server.Addr())
	mustSucceed(t, c.send(Request{Op: OpLoad, Path: writeSales(t)}))
	mustSucceed(t, c.send(Request{Op: OpPivot, Column: "region"}))

	resp := c.send(Request{Op: OpLayoutSave, Name: "by-region"})
	mustSucceed(t, resp)
	var txn TransactionResponse
	if err := json.Unmarshal(resp.Result, &txn); err != nil {
		t.Fatalf("Failed to parse transaction: %v", err)
	}
	if txn.Author != "Default User <default@test.com>" {
		t.Errorf("Expected default identity, got %q", txn.Author)
	}
	if latest := persistence.LatestTransaction(); latest.Id != txn.Id {
		t.Errorf("Expected latest transaction %s, got %s", txn.Id, latest.Id)
	}

	resp = c.send(Request{Op: OpLayouts})
	mustSucceed(t, resp)
	var names []string
	json.Unmarshal(resp.Result, &names)
	if len(names) != 1 || names[0] != "by-region" {
		t.Errorf("Expected [by-region], got %v", names)
	}

	resp = c.send(Request{Op: OpHistory, Name: "by-region"})
	mustSucceed(t, resp)
	var history []TransactionResponse
	json.Unmarshal(resp.Result, &history)
	if len(history) != 1 || history[0].Id != txn.Id {
		t.Errorf("Expected one history entry for %s, got %+v", txn.Id, history)
	}

	// A second connection restores the layout into its own viewer.
	other := dial(t, server.Addr())
	mustSucceed(t, other.send(Request{Op: OpLayoutLoad, Name: "by-region", Rev: txn.Id}))
	if view := other.lastView(); len(view.Rows) != 2 {
		t.Errorf("Expected 2 regions after restore, got %d", len(view.Rows))
	}

	resp = other.send(Request{Op: OpLayoutLoad, Name: "missing"})
	if resp.Success {
		t.Error("Expected restoring a missing layout to fail")
	}
}

func TestServerMetrics(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if err := server.StartMetrics("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start metrics: %v", err)
	}
	c := dial(t, server.Addr())
	mustSucceed(t, c.send(Request{Op: OpLayouts}))

	resp, err := http.Get("http://" + server.MetricsAddr() + "/metrics")
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"commitview_server_requests_total", "commitview_live_viewers"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected metrics to include %s", name)
		}
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"op":"pivot","column":"region","target":"sort"}`))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if req.Op != OpPivot || req.Column != "region" || target(req) != "sort" {
		t.Errorf("Unexpected request %+v", req)
	}
	if target(Request{Op: OpPivot}) != "row-pivots" {
		t.Error("Expected row-pivots as the default target")
	}

	for _, line := range []string{"render", `{"column":"x"}`, `{"op":`} {
		if _, err := DecodeRequest([]byte(line)); err == nil {
			t.Errorf("Expected %q to be rejected", line)
		}
	}
}

// setupAuthTestServer creates a server with authentication enabled
func setupAuthTestServer(t *testing.T, secret string) (*Server, *ps.Persistence, func()) {
	instance, persistence := newTestInstance(t)

	server := NewServerWithAuth(instance, config.AuthConfig{Enabled: true, Secret: secret})
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return server, persistence, func() {
		server.Stop()
	}
}

func TestAuthRequired(t *testing.T) {
	server, _, cleanup := setupAuthTestServer(t, "test-secret")
	defer cleanup()

	c := dial(t, server.Addr())
	resp := c.send(Request{Op: OpLayouts})
	if resp.Success {
		t.Error("Expected failure when not authenticated")
	}
	if !strings.Contains(resp.Error, "authentication required") {
		t.Errorf("Expected 'authentication required' error, got: %s", resp.Error)
	}
}

func TestAuthWithValidJWT(t *testing.T) {
	secret := "test-secret"
	server, _, cleanup := setupAuthTestServer(t, secret)
	defer cleanup()

	token := createTestJWT(t, secret, "Test User", "test@example.com")

	c := dial(t, server.Addr())
	resp := c.sendLine("AUTH JWT " + token)
	if !resp.Success {
		t.Errorf("Auth failed: %s", resp.Error)
	}
	if resp.Type != "auth" {
		t.Errorf("Expected 'auth' type, got: %s", resp.Type)
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Result, &authResp); err != nil {
		t.Fatalf("Failed to parse auth result: %v", err)
	}
	if !authResp.Authenticated {
		t.Error("Expected authenticated to be true")
	}
	if authResp.Identity != "Test User <test@example.com>" {
		t.Errorf("Expected identity 'Test User <test@example.com>', got: %s", authResp.Identity)
	}
	if authResp.ExpiresIn <= 0 {
		t.Errorf("Expected a positive expiry, got %d", authResp.ExpiresIn)
	}

	// Now requests should work
	resp = c.send(Request{Op: OpLayouts})
	if !resp.Success {
		t.Errorf("Request after auth failed: %s", resp.Error)
	}
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, _, cleanup := setupAuthTestServer(t, "test-secret")
	defer cleanup()

	wrongToken := createTestJWT(t, "wrong-secret", "Test User", "test@example.com")

	c := dial(t, server.Addr())
	resp := c.sendLine("AUTH JWT " + wrongToken)
	if resp.Success {
		t.Error("Expected auth to fail with wrong secret")
	}
	if resp.Error == "" {
		t.Error("Expected error message")
	}

	resp = c.send(Request{Op: OpLayouts})
	if resp.Success {
		t.Error("Expected requests to stay rejected after a failed auth")
	}
}

func TestAuthRejectsIssuerAndAudience(t *testing.T) {
	instance, _ := newTestInstance(t)
	server := NewServerWithAuth(instance, config.AuthConfig{
		Enabled:  true,
		Secret:   "s",
		Issuer:   "commitview",
		Audience: "viewers",
	})
	defer server.primary.Delete()

	tests := map[string]jwt.MapClaims{
		"wrong issuer":   {"name": "a", "iss": "other", "aud": "viewers"},
		"wrong audience": {"name": "a", "iss": "commitview", "aud": "admins"},
		"no identity":    {"iss": "commitview", "aud": "viewers"},
	}
	for name, claims := range tests {
		t.Run(name, func(t *testing.T) {
			token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))
			if _, err := server.auth.authenticate(token); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}

	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "a", "iss": "commitview", "aud": "viewers",
	}).SignedString([]byte("s"))
	g, err := server.auth.authenticate(token)
	if err != nil {
		t.Fatalf("Expected valid token, got %v", err)
	}
	if !g.valid(time.Now()) || g.identity.Name != "a" {
		t.Errorf("Unexpected grant: %+v", g)
	}

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "a", "iss": "commitview", "aud": "viewers", "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("s"))
	if _, err := server.auth.authenticate(expired); err == nil {
		t.Error("Expected an expired token to be rejected")
	}
}

func TestAuthToken(t *testing.T) {
	token, err := authToken("auth jwt abc.def")
	if err != nil || token != "abc.def" {
		t.Errorf("Unexpected parse: %q %v", token, err)
	}
	for _, line := range []string{"AUTH JWT", "AUTH BASIC x", "AUTH JWT a b", "HELLO"} {
		if _, err := authToken(line); err == nil {
			t.Errorf("Expected %q to be rejected", line)
		}
	}
	if !isAuthCommand("Auth jwt x") || isAuthCommand("AUTHOR") {
		t.Error("Unexpected AUTH detection")
	}
}

// createTestJWT creates a JWT token for testing
func createTestJWT(t *testing.T, secret, name, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test JWT: %v", err)
	}
	return tokenString
}

// TestIdentityInLayoutsAuthenticated verifies the JWT identity authors
// layout commits.
func TestIdentityInLayoutsAuthenticated(t *testing.T) {
	secret := "test-secret-for-identity"
	server, persistence, cleanup := setupAuthTestServer(t, secret)
	defer cleanup()

	jwtName := "JWT Test User"
	jwtEmail := "jwtuser@example.com"
	token := createTestJWT(t, secret, jwtName, jwtEmail)

	c := dial(t, server.Addr())
	mustSucceed(t, c.sendLine("AUTH JWT "+token))
	mustSucceed(t, c.send(Request{Op: OpLayoutSave, Name: "mine"}))

	txn := persistence.LatestTransaction()
	expectedAuthor := jwtName + " <" + jwtEmail + ">"
	if txn.Author != expectedAuthor {
		t.Errorf("Expected commit author '%s', got '%s'", expectedAuthor, txn.Author)
	}
}

// === TLS Tests ===

// setupTLSTestServer creates a server with TLS enabled using test certificates
func setupTLSTestServer(t *testing.T) (*Server, string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	certFile := tmpDir + "/cert.pem"
	keyFile := tmpDir + "/key.pem"
	generateTestCertificate(t, certFile, keyFile)

	instance, _ := newTestInstance(t)
	identity := core.Identity{Name: "test", Email: "test@test.com"}

	server := NewServer(instance, identity)
	if err := server.StartTLS("127.0.0.1:0", certFile, keyFile); err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}

	return server, certFile, func() {
		server.Stop()
	}
}

// generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T, certFile, keyFile string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:    []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certOut, err := os.Create(certFile)
	if err != nil {
		t.Fatalf("Failed to create cert file: %v", err)
	}
	pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	certOut.Close()

	keyOut, err := os.Create(keyFile)
	if err != nil {
		t.Fatalf("Failed to create key file: %v", err)
	}
	pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	keyOut.Close()
}

func TestTLSServerStartStop(t *testing.T) {
	server, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if !server.TLSEnabled() {
		t.Error("Expected TLS to be enabled")
	}
}

func TestTLSServerConnection(t *testing.T) {
	server, certFile, cleanup := setupTLSTestServer(t)
	defer cleanup()

	certPool := x509.NewCertPool()
	certData, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	certPool.AppendCertsFromPEM(certData)

	tlsConfig := &tls.Config{
		RootCAs:    certPool,
		ServerName: "localhost",
	}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), tlsConfig)
	if err != nil {
		t.Fatalf("Failed to connect with TLS: %v", err)
	}
	defer conn.Close()

	c := &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
	resp := c.send(Request{Op: OpLoad, Path: writeSales(t)})
	if !resp.Success {
		t.Errorf("Request failed: %s", resp.Error)
	}
	if resp.Type != OpLoad {
		t.Errorf("Expected load type, got: %s", resp.Type)
	}
}

func TestTLSServerInvalidCert(t *testing.T) {
	server, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	// The self-signed certificate is not among the system roots.
	tlsConfig := &tls.Config{
		ServerName: "localhost",
	}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), tlsConfig)
	if err == nil {
		conn.Close()
		t.Error("Expected TLS connection to fail with invalid certificate")
	}
}
