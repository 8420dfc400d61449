package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"kittycore/internal/adapters/httpapi"
	"kittycore/internal/core"
	"kittycore/internal/infra/persistence/memory"
	"kittycore/pkg/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newServer(t *testing.T) (*httptest.Server, *clock) {
	t.Helper()
	clk := &clock{now: time.Unix(1_700_000_000, 0).UTC()}
	store := memory.NewStore(core.NewDefaultRulesEngine(), memory.WithClock(clk.Now))
	reg := prometheus.NewRegistry()
	rec, err := core.NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)
	svc, err := core.NewService(store, core.WithMetrics(rec), core.WithEventSink(rec))
	require.NoError(t, err)
	require.NoError(t, svc.Bootstrap(context.Background(), domain.Roles{CEO: "ceo", CFO: "cfo", COO: "coo"}, core.DefaultAutoBirthFee))

	ts := httptest.NewServer(httpapi.NewRouter(httpapi.Options{
		Service: svc,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}))
	t.Cleanup(ts.Close)
	return ts, clk
}

func doReq(t *testing.T, baseURL, method, path, caller string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, rdr)
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(httpapi.CallerHeader, caller)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func decodeObject(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestHTTP_EndToEnd_BreedAndSell(t *testing.T) {
	ts, clk := newServer(t)

	st, _ := doReq(t, ts.URL, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, st)

	for i, genes := range []string{"0x0a", "0x64"} {
		st, body := doReq(t, ts.URL, "POST", "/kitties/promo", "coo", map[string]any{"genes": genes, "owner": "alice"})
		require.Equal(t, http.StatusCreated, st, string(body))
		kitty := decodeObject(t, body)
		require.EqualValues(t, i+1, kitty["id"])
		require.Equal(t, "alice", kitty["owner"])
		require.Equal(t, true, kitty["ready_to_breed"])
	}

	st, body := doReq(t, ts.URL, "POST", "/kitties/1/breed", "alice", map[string]any{"sire_id": 2})
	require.Equal(t, http.StatusOK, st, string(body))
	require.Equal(t, string(domain.StateGestating), decodeObject(t, body)["state"])

	st, body = doReq(t, ts.URL, "POST", "/kitties/1/birth", "bob", nil)
	require.Equal(t, http.StatusConflict, st, string(body))
	require.Equal(t, string(domain.CodeNotReady), decodeObject(t, body)["code"])

	clk.Advance(time.Minute)
	st, body = doReq(t, ts.URL, "POST", "/kitties/1/birth", "bob", nil)
	require.Equal(t, http.StatusCreated, st, string(body))
	child := decodeObject(t, body)
	require.EqualValues(t, 3, child["id"])
	require.EqualValues(t, 1, child["generation"])
	require.Equal(t, "alice", child["owner"])

	st, body = doReq(t, ts.URL, "POST", "/auctions/sale", "alice", map[string]any{
		"token_id": 2, "starting_price": "100", "ending_price": "100", "duration": 60,
	})
	require.Equal(t, http.StatusCreated, st, string(body))
	auction := decodeObject(t, body)
	require.Equal(t, "alice", auction["seller"])
	require.EqualValues(t, 100, auction["current_price"])

	st, body = doReq(t, ts.URL, "GET", "/kitties/2", "", nil)
	require.Equal(t, http.StatusOK, st)
	require.Equal(t, string(domain.SaleEscrowAddress), decodeObject(t, body)["owner"])

	st, body = doReq(t, ts.URL, "POST", "/auctions/sale/2/bid", "bob", map[string]any{"value": "50"})
	require.Equal(t, http.StatusPaymentRequired, st, string(body))

	st, body = doReq(t, ts.URL, "POST", "/auctions/sale/2/bid", "bob", map[string]any{"value": "150"})
	require.Equal(t, http.StatusOK, st, string(body))
	settled := decodeObject(t, body)
	require.EqualValues(t, 100, settled["price"])
	require.EqualValues(t, 3, settled["fee"])
	require.EqualValues(t, 50, settled["refund"])
	require.EqualValues(t, 97, settled["proceeds"].(map[string]any)["wei"])

	st, body = doReq(t, ts.URL, "GET", "/accounts/alice/balance", "", nil)
	require.Equal(t, http.StatusOK, st)
	require.EqualValues(t, 97, decodeObject(t, body)["balance"].(map[string]any)["wei"])

	st, body = doReq(t, ts.URL, "POST", "/accounts/withdraw", "alice", nil)
	require.Equal(t, http.StatusOK, st, string(body))
	require.EqualValues(t, 97, decodeObject(t, body)["amount"].(map[string]any)["wei"])

	st, body = doReq(t, ts.URL, "GET", "/owners/bob/kitties", "", nil)
	require.Equal(t, http.StatusOK, st)
	require.Equal(t, []any{float64(2)}, decodeObject(t, body)["kitties"])

	st, body = doReq(t, ts.URL, "GET", "/auctions/sale/2", "", nil)
	require.Equal(t, http.StatusNotFound, st, string(body))

	st, body = doReq(t, ts.URL, "GET", "/events?since=0&limit=3", "", nil)
	require.Equal(t, http.StatusOK, st)
	var events []domain.Event
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 3)
	require.Equal(t, domain.EventTransfer, events[0].Kind)
	require.Equal(t, domain.EventBirth, events[1].Kind)
}

func TestHTTP_CallerValidation(t *testing.T) {
	ts, _ := newServer(t)

	st, _ := doReq(t, ts.URL, "POST", "/system/pause", "", nil)
	require.Equal(t, http.StatusUnauthorized, st)

	st, _ = doReq(t, ts.URL, "POST", "/system/pause", string(domain.SaleEscrowAddress), nil)
	require.Equal(t, http.StatusForbidden, st)

	st, _ = doReq(t, ts.URL, "POST", "/system/pause", string(domain.CoreAddress), nil)
	require.Equal(t, http.StatusForbidden, st)

	st, body := doReq(t, ts.URL, "POST", "/system/pause", "alice", nil)
	require.Equal(t, http.StatusForbidden, st)
	require.Equal(t, string(domain.CodeNotAuthorized), decodeObject(t, body)["code"])
}

func TestHTTP_AdminFlow(t *testing.T) {
	ts, _ := newServer(t)

	st, body := doReq(t, ts.URL, "POST", "/kitties/promo", "coo", map[string]any{"genes": "0x01", "owner": "alice"})
	require.Equal(t, http.StatusCreated, st, string(body))

	st, body = doReq(t, ts.URL, "POST", "/system/pause", "cfo", nil)
	require.Equal(t, http.StatusOK, st, string(body))
	require.Equal(t, true, decodeObject(t, body)["paused"])

	st, body = doReq(t, ts.URL, "POST", "/kitties/1/transfer", "alice", map[string]any{"to": "bob"})
	require.Equal(t, http.StatusLocked, st, string(body))

	st, _ = doReq(t, ts.URL, "POST", "/system/unpause", "coo", nil)
	require.Equal(t, http.StatusForbidden, st)

	st, _ = doReq(t, ts.URL, "POST", "/system/unpause", "ceo", nil)
	require.Equal(t, http.StatusOK, st)

	st, body = doReq(t, ts.URL, "PUT", "/system/auto-birth-fee", "coo", map[string]any{"value": "3finney"})
	require.Equal(t, http.StatusOK, st, string(body))
	status := decodeObject(t, body)
	require.Equal(t, "0.003", status["auto_birth_fee"].(map[string]any)["ether"])
	require.EqualValues(t, 1, status["total_supply"])

	st, body = doReq(t, ts.URL, "PUT", "/system/auto-birth-fee", "coo", map[string]any{"value": "lots"})
	require.Equal(t, http.StatusBadRequest, st, string(body))

	st, body = doReq(t, ts.URL, "PUT", "/system/roles/coo", "ceo", map[string]any{"address": "dave"})
	require.Equal(t, http.StatusOK, st, string(body))
	require.Equal(t, "dave", decodeObject(t, body)["roles"].(map[string]any)["coo"])

	st, _ = doReq(t, ts.URL, "PUT", "/system/roles/janitor", "ceo", map[string]any{"address": "dave"})
	require.Equal(t, http.StatusBadRequest, st)

	st, body = doReq(t, ts.URL, "POST", "/kitties/1/transfer", "alice", map[string]any{"to": "bob"})
	require.Equal(t, http.StatusOK, st, string(body))
	require.Equal(t, "bob", decodeObject(t, body)["owner"])
}

func TestHTTP_Gen0AndMetrics(t *testing.T) {
	ts, _ := newServer(t)

	st, body := doReq(t, ts.URL, "GET", "/gen0/price", "", nil)
	require.Equal(t, http.StatusOK, st)
	require.Equal(t, "0.01", decodeObject(t, body)["next"].(map[string]any)["ether"])

	st, body = doReq(t, ts.URL, "POST", "/gen0/auctions", "coo", map[string]any{"genes": "0x2a"})
	require.Equal(t, http.StatusCreated, st, string(body))
	auction := decodeObject(t, body)
	require.Equal(t, string(domain.CoreAddress), auction["seller"])
	require.Equal(t, true, auction["gen0"])

	st, body = doReq(t, ts.URL, "GET", "/auctions/sale", "", nil)
	require.Equal(t, http.StatusOK, st)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)

	st, _ = doReq(t, ts.URL, "GET", "/auctions/raffle", "", nil)
	require.Equal(t, http.StatusBadRequest, st)
	st, _ = doReq(t, ts.URL, "GET", "/kitties/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, st)
	st, _ = doReq(t, ts.URL, "GET", "/kitties/99", "", nil)
	require.Equal(t, http.StatusNotFound, st)

	st, body = doReq(t, ts.URL, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, st)
	require.Contains(t, string(body), "create_gen0_auction")
}
