// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

type mockRunner struct {
	got    types.QueryRequest
	called bool
}

func (m *mockRunner) Run(_ context.Context, req types.QueryRequest) types.QueryResponse {
	m.called = true
	m.got = req
	return types.QueryResponse{
		FinalResponse: types.FinalResponse{
			Status:     types.FinalOK,
			SourceUsed: types.SourceWeb,
			Answer:     "Go is a programming language.",
			Citations:  []types.Citation{{Label: "Go", Locator: "https://go.dev"}},
			Confidence: 0.9,
			Missing:    []string{},
		},
		ContextSources: map[types.SourceID]types.SourceResult{
			types.SourceWeb: {SourceID: types.SourceWeb, Status: types.StatusOK, Confidence: 0.97, Citations: []types.Citation{}},
		},
		EvaluationResult: types.EvaluationResult{
			RelevantSourceIDs: []types.SourceID{types.SourceWeb},
			RelevanceScores:   map[types.SourceID]float64{types.SourceWeb: 0.9},
		},
	}
}

func newTestServer(r Runner) *httptest.Server {
	info := StatusInfo{
		Version:  "test",
		Provider: types.ProviderAnthropic,
		Model:    "claude-test",
		Sources:  map[types.SourceID]string{types.SourceWeb: "configured", types.SourceDocument: "unavailable"},
	}
	s := New(r, info, types.ServerConfig{Addr: ":0"}, zap.NewNop())
	return httptest.NewServer(s.Handler())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&mockRunner{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(&mockRunner{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info StatusInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "claude-test", info.Model)
	assert.Equal(t, "configured", info.Sources[types.SourceWeb])
}

func TestQuery(t *testing.T) {
	m := &mockRunner{}
	ts := newTestServer(m)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"query":"what is go?","user_id":"alice"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "what is go?", m.got.Query)
	assert.Equal(t, "alice", m.got.UserID)
	assert.Equal(t, types.DefaultThreadID, m.got.ThreadID)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	for _, key := range []string{"status", "source_used", "answer", "citations", "confidence", "missing", "context_sources", "evaluation_result"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "WEB", body["source_used"])
}

func TestQueryKeepsCallerRequestID(t *testing.T) {
	ts := newTestServer(&mockRunner{})
	defer ts.Close()

	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/query", strings.NewReader(`{"query":"q"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestQueryValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
		wantField string
	}{
		{"malformed json", `{"query":`, "invalid_request", ""},
		{"missing query", `{"user_id":"u"}`, "validation_failed", "query"},
		{"blank query", `{"query":"   \n\t "}`, "validation_failed", "query"},
		{"query too long", `{"query":"` + strings.Repeat("a", 4001) + `"}`, "validation_failed", "query"},
		{"user id too long", `{"query":"q","user_id":"` + strings.Repeat("u", 129) + `"}`, "validation_failed", "user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRunner{}
			ts := newTestServer(m)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, m.called)

			var er ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
			assert.Equal(t, tt.wantError, er.Error)
			if tt.wantField != "" {
				assert.Contains(t, er.Details, tt.wantField)
			}
		})
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	ts := newTestServer(&mockRunner{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/query")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := New(&mockRunner{}, StatusInfo{}, types.ServerConfig{Addr: "127.0.0.1:0"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
