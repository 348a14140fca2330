//go:build e2e

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"toolprice-service/internal/domain"
	httpserver "toolprice-service/internal/infrastructure/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// The API under test must run with the demo migrations applied and
// JWT_SECRET equal to E2E_JWT_SECRET.
const (
	defaultBaseURL    = "http://localhost:8080"
	readyTimeout      = 30 * time.Second
	readyPollInterval = 250 * time.Millisecond
)

type priceResponse struct {
	ToolID      string   `json:"tool_id"`
	BaselineUSD *float64 `json:"baseline_usd"`
	ResultLocal *int64   `json:"result_local"`
	Rate        *float64 `json:"rate"`
	Source      string   `json:"source"`
}

type e2eClient struct {
	t      *testing.T
	base   string
	secret string
	http   *http.Client
}

func newClient(t *testing.T) *e2eClient {
	t.Helper()
	if os.Getenv("E2E") != "1" {
		t.Skip("set E2E=1 and E2E_BASE_URL to run against a live API")
	}
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	secret := os.Getenv("E2E_JWT_SECRET")
	if secret == "" {
		t.Skip("E2E_JWT_SECRET not set")
	}
	return &e2eClient{t: t, base: base, secret: secret, http: &http.Client{Timeout: 5 * time.Second}}
}

func (c *e2eClient) waitForReady() {
	c.t.Helper()
	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		resp, err := c.http.Get(c.base + "/readyz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(readyPollInterval)
	}
	c.t.Fatalf("API did not become ready within %s", readyTimeout)
}

func (c *e2eClient) do(method, path, user string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		tok, err := httpserver.SignToken(c.secret, user, time.Minute)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestE2E_PriceResolution(t *testing.T) {
	c := newClient(t)
	c.waitForReady()

	var rate struct {
		Value float64 `json:"value"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/rates/usd", "", nil, &rate))
	require.Greater(t, rate.Value, 0.0)

	var base priceResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/tools/demo-writer/price", "", nil, &base))
	require.Equal(t, "base", base.Source)
	require.NotNil(t, base.ResultLocal)
	require.Zero(t, *base.ResultLocal%10)

	var legacy priceResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/tools/demo-legacy/price", "", nil, &legacy))
	require.Equal(t, int64(1500), *legacy.ResultLocal)

	var free priceResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/tools/demo-free/price", "", nil, &free))
	require.Nil(t, free.ResultLocal)

	require.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/tools/does-not-exist/price", "", nil, nil))
}

func TestE2E_PersonalOverride(t *testing.T) {
	c := newClient(t)
	c.waitForReady()
	user := "e2e-" + uuid.NewString()

	require.Equal(t, http.StatusUnauthorized,
		c.do(http.MethodPut, "/tools/demo-writer/price/personal", "", map[string]any{"baseline_usd": 5}, nil))

	var set priceResponse
	require.Equal(t, http.StatusOK,
		c.do(http.MethodPut, "/tools/demo-writer/price/personal", user, map[string]any{"baseline_usd": 5, "rate": 84}, &set))
	require.Equal(t, domain.CalculatePrice(5, 84, domain.DefaultPriceParams()), *set.ResultLocal)

	var got priceResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/tools/demo-writer/price", user, nil, &got))
	require.Equal(t, "personal", got.Source)
	require.Equal(t, *set.ResultLocal, *got.ResultLocal)
}

func TestE2E_Purchase(t *testing.T) {
	c := newClient(t)
	c.waitForReady()
	user := "e2e-" + uuid.NewString()
	paymentID := uuid.NewString()

	var created struct {
		Status string `json:"status"`
	}
	body := map[string]any{"tool_id": "demo-writer", "payment_id": paymentID}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/purchases", user, body, &created))
	require.Equal(t, "pending", created.Status)
	require.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/purchases", user, body, nil))

	var access struct {
		HasAccess bool `json:"has_access"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/tools/demo-writer/access", user, nil, &access))
	require.False(t, access.HasAccess)
}
