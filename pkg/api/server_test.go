package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/eroom/pkg/jobstore"
	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
	"github.com/codeready-toolchain/eroom/pkg/queue"
)

type fakeQueue struct {
	submitFn func(req orchestrator.Request) (string, error)
	status   queue.Status
}

func (f *fakeQueue) Submit(req orchestrator.Request) (string, error) { return f.submitFn(req) }
func (f *fakeQueue) Status() queue.Status                            { return f.status }

func TestCreateRoomHandlerReturns202WithRuid(t *testing.T) {
	q := &fakeQueue{submitFn: func(orchestrator.Request) (string, error) { return "room_0123456789abcdef", nil }}
	s := NewServer(q, jobstore.New())

	body, _ := json.Marshal(createRoomRequest{Theme: "lab", Keywords: []string{"k"}})
	req := httptest.NewRequest(http.MethodPost, "/room/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "room_0123456789abcdef", resp["ruid"])
}

func TestCreateRoomHandlerRejectsMissingTheme(t *testing.T) {
	q := &fakeQueue{}
	s := NewServer(q, jobstore.New())

	body, _ := json.Marshal(map[string]any{"keywords": []string{"k"}})
	req := httptest.NewRequest(http.MethodPost, "/room/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRoomHandlerMapsQueueFullToServiceUnavailable(t *testing.T) {
	q := &fakeQueue{submitFn: func(orchestrator.Request) (string, error) { return "", queue.ErrQueueFull }}
	s := NewServer(q, jobstore.New())

	body, _ := json.Marshal(createRoomRequest{Theme: "lab", Keywords: []string{"k"}})
	req := httptest.NewRequest(http.MethodPost, "/room/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoomStatusHandlerReturnsStatusForNonTerminalJob(t *testing.T) {
	store := jobstore.New()
	store.Register("room_aaaaaaaaaaaaaaaa")
	s := NewServer(&fakeQueue{}, store)

	req := httptest.NewRequest(http.MethodGet, "/room/status/room_aaaaaaaaaaaaaaaa", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "QUEUED", resp["status"])
}

func TestRoomStatusHandlerReturnsFullBundleForTerminalJob(t *testing.T) {
	store := jobstore.New()
	store.Register("room_bbbbbbbbbbbbbbbb")
	require.NoError(t, store.StoreFinal("room_bbbbbbbbbbbbbbbb", map[string]any{
		"uuid": "u1", "ruid": "room_bbbbbbbbbbbbbbbb", "success": true,
	}, jobstore.StatusCompleted))

	s := NewServer(&fakeQueue{}, store)
	req := httptest.NewRequest(http.MethodGet, "/room/status/room_bbbbbbbbbbbbbbbb", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestRoomStatusHandlerReturns404ForUnknownRuid(t *testing.T) {
	s := NewServer(&fakeQueue{}, jobstore.New())
	req := httptest.NewRequest(http.MethodGet, "/room/status/room_unknown00000000", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRoomHandlerRemovesEntry(t *testing.T) {
	store := jobstore.New()
	store.Register("room_cccccccccccccccc")
	s := NewServer(&fakeQueue{}, store)

	req := httptest.NewRequest(http.MethodDelete, "/room/room_cccccccccccccccc", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := store.Get("room_cccccccccccccccc")
	assert.False(t, ok)
}

func TestQueueStatusHandlerReturnsMetrics(t *testing.T) {
	q := &fakeQueue{status: queue.Status{Queued: 2, Active: 1, Completed: 5, MaxConcurrent: 3}}
	s := NewServer(q, jobstore.New())

	req := httptest.NewRequest(http.MethodGet, "/queue/status", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp queue.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Queued)
	assert.Equal(t, 5, resp.Completed)
}
