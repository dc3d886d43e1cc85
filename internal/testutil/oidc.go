package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// OIDCUser is the identity the fake issuer signs into the next id_token.
type OIDCUser struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// OIDCServer is an in-process OpenID Connect issuer with discovery, JWKS and
// a token endpoint. Codes are minted with IssueCode rather than through a
// browser redirect.
type OIDCServer struct {
	URL      string
	ClientID string

	server *httptest.Server
	key    *rsa.PrivateKey
	keyID  string

	mu    sync.Mutex
	codes map[string]oidcCode
}

type oidcCode struct {
	user  OIDCUser
	nonce string
}

func NewOIDCServer(t *testing.T, clientID string) *OIDCServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	s := &OIDCServer{
		ClientID: clientID,
		key:      key,
		keyID:    randomToken(t, 8),
		codes:    map[string]oidcCode{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", s.handleDiscovery)
	mux.HandleFunc("GET /keys", s.handleKeys)
	mux.HandleFunc("POST /token", s.handleToken)

	s.server = httptest.NewServer(mux)
	s.URL = s.server.URL
	t.Cleanup(s.server.Close)
	return s
}

// Client returns an HTTP client that trusts the server.
func (s *OIDCServer) Client() *http.Client {
	return s.server.Client()
}

// IssueCode registers an authorization code that exchanges for user's id_token.
func (s *OIDCServer) IssueCode(t *testing.T, user OIDCUser, nonce string) string {
	t.Helper()
	code := randomToken(t, 16)
	s.mu.Lock()
	s.codes[code] = oidcCode{user: user, nonce: nonce}
	s.mu.Unlock()
	return code
}

func (s *OIDCServer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeOIDCJSON(w, http.StatusOK, map[string]any{
		"issuer":                                s.URL,
		"authorization_endpoint":                s.URL + "/authorize",
		"token_endpoint":                        s.URL + "/token",
		"jwks_uri":                              s.URL + "/keys",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (s *OIDCServer) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeOIDCJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": s.keyID,
			"n":   base64.RawURLEncoding.EncodeToString(s.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(s.key.E)).Bytes()),
		}},
	})
}

func (s *OIDCServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "authorization_code" {
		writeOIDCJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	clientID := r.Form.Get("client_id")
	if id, _, ok := r.BasicAuth(); ok {
		clientID = id
	}
	if clientID != s.ClientID {
		writeOIDCJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	s.mu.Lock()
	data, ok := s.codes[r.Form.Get("code")]
	delete(s.codes, r.Form.Get("code"))
	s.mu.Unlock()
	if !ok {
		writeOIDCJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	now := time.Now()
	idToken, err := s.sign(map[string]any{
		"iss":            s.URL,
		"sub":            data.user.Subject,
		"aud":            s.ClientID,
		"exp":            now.Add(10 * time.Minute).Unix(),
		"iat":            now.Unix(),
		"email":          strings.ToLower(data.user.Email),
		"email_verified": data.user.EmailVerified,
		"name":           data.user.Name,
		"nonce":          data.nonce,
	})
	if err != nil {
		writeOIDCJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	writeOIDCJSON(w, http.StatusOK, map[string]any{
		"access_token": "access-" + r.Form.Get("code"),
		"token_type":   "Bearer",
		"expires_in":   600,
		"id_token":     idToken,
	})
}

func (s *OIDCServer) sign(claims map[string]any) (string, error) {
	header, err := json.Marshal(map[string]any{"alg": "RS256", "typ": "JWT", "kid": s.keyID})
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(payload)
	hash := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func randomToken(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("reading random bytes: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func writeOIDCJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
