package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/media"
	"github.com/takeshy/photorelay/internal/relay"
)

func setup(t *testing.T) (*gin.Engine, *relay.StatusBoard, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, err := ledger.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	board := relay.NewStatusBoard()
	return NewRouter(NewHandler(board, l)), board, l
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	r, _, _ := setup(t)
	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	r, board, l := setup(t)
	require.NoError(t, l.Record(context.Background(), "k", "a.jpg"))

	board.CycleStarted("local")
	board.ItemDone(relay.Outcome{Item: media.Item{Source: "local", DisplayName: "a.jpg"}, Status: relay.StatusUploaded, Action: relay.ActionSendDirect})
	board.CycleDone(relay.CycleSummary{
		Source:   "local",
		Duration: 2 * time.Second,
		Seen:     1,
		Uploaded: 1,
		ScanErr:  errors.New("root vanished"),
	})

	rec := get(t, r, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 1)
	src := resp.Sources[0]
	assert.Equal(t, "local", src.Source)
	assert.Equal(t, 1, src.Cycles)
	require.NotNil(t, src.LastCycle)
	assert.Equal(t, int64(2000), src.LastCycle.DurationMS)
	assert.Equal(t, "root vanished", src.LastCycle.ScanError)
	require.NotNil(t, src.LastOutcome)
	assert.Equal(t, "direct", src.LastOutcome.Action)
	assert.Equal(t, int64(1), resp.Ledger.Total)
}

func TestLedgerEndpoints(t *testing.T) {
	r, _, l := setup(t)
	ctx := context.Background()
	require.NoError(t, l.Record(ctx, "k1", "a.jpg"))
	require.NoError(t, l.Record(ctx, "k2", "b.jpg"))

	rec := get(t, r, "/api/v1/ledger?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list LedgerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = get(t, r, "/api/v1/ledger?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, r, "/api/v1/ledger/k1")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry ledger.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "a.jpg", entry.Label)

	rec = get(t, r, "/api/v1/ledger/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	r, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", r) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
