package inference

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
)

func TestHTTPProvider_Assess(t *testing.T) {
	var got AssessRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(Assessment{
			ScoreDelta: 0.12,
			Narrative:  []string{"Model note: deployment pattern matches known token factories."},
			Confidence: 0.8,
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(Config{Endpoint: srv.URL, APIKey: "test-key"})
	out, err := p.Assess(context.Background(), AssessRequest{
		Address:        "0x1111111111111111111111111111111111111111",
		Kind:           "Token",
		HeuristicScore: 0.45,
		Features:       map[string]any{"verified_contract": false},
	})
	require.NoError(t, err)

	assert.Equal(t, "0x1111111111111111111111111111111111111111", got.Address)
	assert.InDelta(t, 0.45, got.HeuristicScore, 1e-9)
	assert.InDelta(t, 0.12, out.ScoreDelta, 1e-9)
	assert.Equal(t, "http", out.Provider)
	assert.Len(t, out.Narrative, 1)
}

func TestHTTPProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Assessment{ScoreDelta: -0.05})
	}))
	defer srv.Close()

	p := NewHTTPProvider(Config{Endpoint: srv.URL, MaxRetries: 2})
	out, err := p.Assess(context.Background(), AssessRequest{Address: "0x22"})
	require.NoError(t, err)
	assert.InDelta(t, -0.05, out.ScoreDelta, 1e-9)
	assert.Equal(t, int64(2), calls.Load())
}

func TestHTTPProvider_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewHTTPProvider(Config{Endpoint: srv.URL, MaxRetries: 3})
	_, err := p.Assess(context.Background(), AssessRequest{Address: "0x33"})
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load(), "4xx must not be retried")
}

func TestHTTPProvider_HealthTracksErrorRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPProvider(Config{Endpoint: srv.URL, Timeout: time.Second})
	for i := 0; i < 3; i++ {
		_, err := p.Assess(context.Background(), AssessRequest{})
		require.Error(t, err)
	}

	h := p.Health()
	assert.False(t, h.Available)
	assert.InDelta(t, 1.0, h.ErrorRate, 1e-9)
	assert.NotEmpty(t, h.LastError)
}

func TestStubProvider_CyclesAssessments(t *testing.T) {
	stub := NewStubProvider("stub", []Assessment{
		{ScoreDelta: 0.1},
		{ScoreDelta: -0.1},
	})

	first, err := stub.Assess(context.Background(), AssessRequest{})
	require.NoError(t, err)
	second, err := stub.Assess(context.Background(), AssessRequest{})
	require.NoError(t, err)
	third, err := stub.Assess(context.Background(), AssessRequest{})
	require.NoError(t, err)

	assert.InDelta(t, 0.1, first.ScoreDelta, 1e-9)
	assert.InDelta(t, -0.1, second.ScoreDelta, 1e-9)
	assert.InDelta(t, 0.1, third.ScoreDelta, 1e-9)
	assert.Equal(t, "stub", first.Provider)
	assert.Equal(t, 3, stub.Calls())
}

func TestStubProvider_Unhealthy(t *testing.T) {
	stub := NewStubProvider("stub", []Assessment{{ScoreDelta: 0.1}})
	stub.SetHealthy(false)

	_, err := stub.Assess(context.Background(), AssessRequest{})
	require.Error(t, err)

	h := stub.Health()
	assert.False(t, h.Available)
	assert.InDelta(t, 1.0, h.ErrorRate, 1e-9)
}
