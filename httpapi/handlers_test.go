package httpapi_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/approval"
	"github.com/arcanrun/arcane/driver"
	"github.com/arcanrun/arcane/httpapi"
	"github.com/arcanrun/arcane/journal/inmem"
	"github.com/arcanrun/arcane/orchestrator"
	"github.com/arcanrun/arcane/provider"
	"github.com/arcanrun/arcane/session"
	"github.com/arcanrun/arcane/tools"
)

type scriptedProvider struct {
	turns []provider.ModelTurn
	next  int
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) Complete(context.Context, provider.Request) (provider.ModelTurn, error) {
	if p.next >= len(p.turns) {
		return provider.ModelTurn{StopReason: provider.StopEndTurn}, nil
	}
	turn := p.turns[p.next]
	p.next++
	return turn, nil
}

func newTestServer() *httpapi.Server {
	p := &scriptedProvider{turns: []provider.ModelTurn{
		{Directives: []provider.Directive{{Kind: provider.DirectiveText, TextDelta: "hello"}}, StopReason: provider.StopEndTurn},
	}}
	repo := session.NewRepository(inmem.New())
	d := driver.New(repo, orchestrator.New(p, tools.NewRegistry(), nil))
	gate := approval.NewGate(0)
	return httpapi.New(d, gate, nil)
}

func TestHealthReturnsOK(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestChatStreamsNativeFrames(t *testing.T) {
	srv := newTestServer()
	body := bytes.NewBufferString(`{"session_id":"s1","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	found := false
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "text_delta") {
			found = true
		}
	}
	assert.True(t, found, "expected a text_delta frame in the response body")
}

func TestChatRejectsMalformedBody(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`not json`))
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveUnknownIDReturns404(t *testing.T) {
	srv := newTestServer()
	body := bytes.NewBufferString(`{"approval_id":"missing","decision":"approved"}`)
	req := httptest.NewRequest(http.MethodPost, "/approve", body)
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveResolvesPendingRequest(t *testing.T) {
	srv := newTestServer()
	srv.Gate.Request(approval.Request{ApprovalID: "a1", ToolName: "x"})

	body := bytes.NewBufferString(`{"approval_id":"a1","decision":"approved"}`)
	req := httptest.NewRequest(http.MethodPost, "/approve", body)
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["resolved"])
}

func TestApprovalsListsPending(t *testing.T) {
	srv := newTestServer()
	srv.Gate.Request(approval.Request{ApprovalID: "a1", ToolName: "x"})

	req := httptest.NewRequest(http.MethodGet, "/approvals", nil)
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a1")
}
