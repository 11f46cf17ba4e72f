package ipfs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpIncentives/internal/retry"
)

func TestPinataPinJSON(t *testing.T) {
	var mirrorHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/pinning/pinJSONToIPFS", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))

		var req pinRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0, req.PinataOptions.CIDVersion)
		assert.Equal(t, "rewards_2800.json", req.PinataMetadata.Name)
		assert.JSONEq(t, `{"a":1}`, string(req.PinataContent))

		_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": knownCID})
	})
	mux.HandleFunc("/pins", func(w http.ResponseWriter, r *http.Request) {
		mirrorHits.Add(1)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		mirrorHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	pinner, err := NewPinataPinner(PinataConfig{BaseURL: srv.URL, JWT: "jwt-token"}, []Mirror{
		{Name: "starton", URL: srv.URL + "/pins", Header: "x-api-key", Token: "key-1"},
		{Name: "broken", URL: srv.URL + "/broken", Token: "t", BearerKey: true},
	}, nil)
	require.NoError(t, err)

	cid, err := pinner.PinJSON(context.Background(), "rewards_2800.json", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, knownCID, cid)
	assert.Equal(t, int32(2), mirrorHits.Load())
}

func TestPinataRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "s", r.Header.Get("pinata_secret_api_key"))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": knownCID})
	}))
	defer srv.Close()

	pinner, err := NewPinataPinner(PinataConfig{
		BaseURL:   srv.URL,
		APIKey:    "k",
		APISecret: "s",
		Retry:     retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond},
	}, nil, nil)
	require.NoError(t, err)

	cid, err := pinner.PinJSON(context.Background(), "x", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, knownCID, cid)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPinataDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	pinner, err := NewPinataPinner(PinataConfig{
		BaseURL: srv.URL,
		JWT:     "bad",
		Retry:   retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond},
	}, nil, nil)
	require.NoError(t, err)

	_, err = pinner.PinJSON(context.Background(), "x", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewPinataPinnerNeedsCredentials(t *testing.T) {
	_, err := NewPinataPinner(PinataConfig{APIKey: "only-key"}, nil, nil)
	require.Error(t, err)
}
