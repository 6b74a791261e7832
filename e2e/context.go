package e2e

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config points the suite at a running server.
type Config struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string
}

// TestContext holds per-scenario state: actor identities, known domain ids
// and the last response.
type TestContext struct {
	cfg    Config
	client *http.Client

	label  string
	actors map[string]string
	ids    map[string]uint64

	lastStatus int
	lastBody   []byte
}

func NewTestContext(cfg Config) *TestContext {
	return &TestContext{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset starts a scenario with fresh actors and a unique top-level label, so
// scenarios never see each other's domains on a shared server.
func (tc *TestContext) Reset() {
	tc.label = "e2e" + randomHex(6)
	tc.actors = map[string]string{}
	tc.ids = map[string]uint64{"": 0}
	tc.lastStatus = 0
	tc.lastBody = nil
}

// Expand replaces {tld} with the scenario's top-level label.
func (tc *TestContext) Expand(name string) string {
	return strings.ReplaceAll(name, "{tld}", tc.label)
}

// Address returns the actor's address, minting one on first use.
func (tc *TestContext) Address(actor string) string {
	if actor == "nobody" {
		return "0x0000000000000000000000000000000000000000"
	}
	addr, ok := tc.actors[actor]
	if !ok {
		addr = "0x" + randomHex(20)
		tc.actors[actor] = addr
	}
	return addr
}

func (tc *TestContext) Remember(name string, domainID uint64) {
	tc.ids[name] = domainID
}

func (tc *TestContext) DomainID(name string) (uint64, error) {
	domainID, ok := tc.ids[name]
	if !ok {
		return 0, fmt.Errorf("domain %q was not created in this scenario", name)
	}
	return domainID, nil
}

func (tc *TestContext) token(actor string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   tc.Address(actor),
		Issuer:    tc.cfg.Issuer,
		Audience:  []string{tc.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		ID:        randomHex(16),
	})
	return token.SignedString([]byte(tc.cfg.SigningKey))
}

// Do sends a request as actor. An empty actor sends no Authorization header.
func (tc *TestContext) Do(method, path, actor string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, strings.TrimRight(tc.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		token, err := tc.token(actor)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, "", nil)
}

func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.lastBody, &payload); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.lastBody)
	}
	value, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return value, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
