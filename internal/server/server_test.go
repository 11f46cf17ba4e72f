package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpIncentives/internal/ledger"
	"lpIncentives/internal/metrics"
	"lpIncentives/internal/model"
	"lpIncentives/internal/pipeline"
)

var holder = model.MustParseAddress("0x1111111111111111111111111111111111111111")

type fakeRunner struct {
	calls int
	err   error
	block chan struct{}
}

func (f *fakeRunner) Run(context.Context) (pipeline.Report, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return pipeline.Report{}, f.err
	}
	return pipeline.Report{Ledger: ledger.Ledger{holder: {"lp": big.NewInt(42)}}}, nil
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunReturnsLedger(t *testing.T) {
	runner := &fakeRunner{}
	s := New(Config{AuthHeader: "X-Key", AuthValue: "secret"}, runner, nil, nil)

	for _, path := range []string{"/run", "/mainnet"} {
		rec := get(t, s.Handler(), path, map[string]string{"X-Key": "secret"})
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "42", body[holder.String()]["lp"])
	}
	assert.Equal(t, 2, runner.calls)
}

func TestRunRejectsBadAuth(t *testing.T) {
	runner := &fakeRunner{}
	s := New(Config{AuthHeader: "X-Key", AuthValue: "secret"}, runner, nil, nil)

	rec := get(t, s.Handler(), "/run", map[string]string{"X-Key": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Incorrect authentication", strings.TrimSpace(rec.Body.String()))
	assert.Zero(t, runner.calls)

	rec = get(t, s.Handler(), "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunMapsErrors(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("check: %w", pipeline.ErrWeekAlreadyCommitted)}
	s := New(Config{}, runner, nil, nil)

	rec := get(t, s.Handler(), "/run", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	runner.err = fmt.Errorf("rpc down")
	rec = get(t, s.Handler(), "/run", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := New(Config{}, runner, nil, nil)

	s.running.Lock()
	rec := get(t, s.Handler(), "/run", nil)
	s.running.Unlock()
	close(runner.block)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.Committed(2901)

	s := New(Config{}, &fakeRunner{}, reg, nil)
	rec := get(t, s.Handler(), "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "incentives_last_committed_week 2901")
}
