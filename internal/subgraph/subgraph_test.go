package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpIncentives/internal/model"
	"lpIncentives/internal/retry"
)

var pool = model.MustParseAddress("0xC08f31c9b83C9fC2F0D4ED1F1B0c5B08c2F5aF61")

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newServer(t *testing.T, handle func(req gqlRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(handle(req)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTradesParsesAndSortsByTimestamp(t *testing.T) {
	var seen gqlRequest
	srv := newServer(t, func(req gqlRequest) string {
		seen = req
		return `{"data":{"swaps":[
			{"timestamp":"300","amount":"120.5","tick":"-10","sqrtPriceX96":"79228162514264337593543950336","transaction":{"blockNumber":"12"}},
			{"timestamp":"100","amount":"60","tick":"5","sqrtPriceX96":"","transaction":{"blockNumber":"10"}}
		]}}`
	})

	client, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	trades, err := client.Trades(context.Background(), pool, 0, 604800, 1000, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, uint64(100), trades[0].Timestamp)
	assert.Equal(t, int32(5), trades[0].Tick)
	assert.Nil(t, trades[0].SqrtPriceX96)
	assert.Equal(t, uint64(300), trades[1].Timestamp)
	assert.Equal(t, int32(-10), trades[1].Tick)
	assert.Equal(t, "79228162514264337593543950336", trades[1].SqrtPriceX96.String())
	assert.True(t, trades[1].Amount.Equal(decimal.RequireFromString("120.5")))

	assert.Contains(t, seen.Query, "amountUSD")
	assert.Equal(t, strings.ToLower(pool.String()), seen.Variables["pool"])
	assert.Equal(t, "604800", seen.Variables["upper"])
	assert.Equal(t, "50", seen.Variables["minAmount"])
}

func TestTradesTestnetUsesTokenAmount(t *testing.T) {
	var seen gqlRequest
	srv := newServer(t, func(req gqlRequest) string {
		seen = req
		return `{"data":{"swaps":[{"timestamp":"1","amount":"-3.5","tick":"0","sqrtPriceX96":"","transaction":{"blockNumber":"1"}}]}}`
	})

	client, err := NewClient(Config{URL: srv.URL, Testnet: true}, nil)
	require.NoError(t, err)

	trades, err := client.Trades(context.Background(), pool, 0, 10, 5, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Amount.Equal(decimal.RequireFromString("3.5")))
	assert.Contains(t, seen.Query, "amount0")
	assert.NotContains(t, seen.Variables, "minAmount")
}

func TestTradesRejectsMalformedRow(t *testing.T) {
	srv := newServer(t, func(gqlRequest) string {
		return `{"data":{"swaps":[{"timestamp":"x","amount":"1","tick":"0","sqrtPriceX96":"","transaction":{"blockNumber":"1"}}]}}`
	})
	client, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = client.Trades(context.Background(), pool, 0, 10, 5, decimal.Zero)
	require.Error(t, err)
}

func TestPositionRefsPagesAndDedupes(t *testing.T) {
	var calls int32
	srv := newServer(t, func(req gqlRequest) string {
		atomic.AddInt32(&calls, 1)
		skip := int(req.Variables["skip"].(float64))
		switch skip {
		case 0:
			return `{"data":{"positionSnapshots":[{"position":{"id":"7"}},{"position":{"id":"9"}}]}}`
		case 2:
			return `{"data":{"positionSnapshots":[{"position":{"id":"7"}},{"position":{"id":"11"}}]}}`
		default:
			return `{"data":{"positionSnapshots":[{"position":{"id":"12"}}]}}`
		}
	})

	client, err := NewClient(Config{URL: srv.URL, PageSize: 2}, nil)
	require.NoError(t, err)

	refs, err := client.PositionRefs(context.Background(), pool)
	require.NoError(t, err)

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID.String())
	}
	assert.Equal(t, []string{"7", "9", "11", "12"}, ids)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueryErrorsAreRetried(t *testing.T) {
	var calls int32
	srv := newServer(t, func(gqlRequest) string {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return `{"errors":[{"message":"indexer unavailable"}]}`
		}
		return `{"data":{"positionSnapshots":[]}}`
	})

	client, err := NewClient(Config{
		URL:   srv.URL,
		Retry: retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}, nil)
	require.NoError(t, err)

	refs, err := client.PositionRefs(context.Background(), pool)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{URL: " "}, nil)
	require.Error(t, err)
}
