package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffler33/lean-insights/internal/enrichment"
	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/services"
	"github.com/spiffler33/lean-insights/internal/shardqueue"
	"github.com/spiffler33/lean-insights/internal/store/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *services.JournalService) {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	exec := shardqueue.NewShardExecutor(shardqueue.Config{Shards: 1, QueueSize: 64})
	t.Cleanup(exec.Stop)
	svc := services.NewJournalService(s, enrichment.Noop(), exec, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(svc, s, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestEntryLifecycle(t *testing.T) {
	srv, svc := newTestServer(t)
	base := srv.URL + "/api/users/u1"

	// create
	resp := doJSON(t, http.MethodPost, base+"/entries", map[string]string{"content": "Coffee with Sarah #friends"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Entry
	decode(t, resp, &created)
	assert.NotEmpty(t, created.EntryID)
	assert.Equal(t, []string{"friends"}, created.Tags)

	require.NoError(t, svc.Barrier(context.Background(), "u1"))

	// get
	resp = doJSON(t, http.MethodGet, base+"/entries/"+created.EntryID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Entry
	decode(t, resp, &got)
	assert.Equal(t, created.Content, got.Content)

	// list with tag filter
	resp = doJSON(t, http.MethodGet, base+"/entries?tag=friends", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Entries []model.Entry `json:"entries"`
		Count   int           `json:"count"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 1, list.Count)

	// update
	resp = doJSON(t, http.MethodPut, base+"/entries/"+created.EntryID, map[string]string{"content": "Coffee updated #social"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, svc.Barrier(context.Background(), "u1"))

	// delete
	resp = doJSON(t, http.MethodDelete, base+"/entries/"+created.EntryID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/entries/"+created.EntryID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/users/u1"

	resp := doJSON(t, http.MethodPost, base+"/entries", map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/entries?limit=notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestPatternEndpoints(t *testing.T) {
	srv, svc := newTestServer(t)
	base := srv.URL + "/api/users/u1"

	for i := 0; i < 3; i++ {
		_, err := svc.CreateEntry(context.Background(), "u1", fmt.Sprintf("note %d #daily", i))
		require.NoError(t, err)
	}
	require.NoError(t, svc.Barrier(context.Background(), "u1"))

	resp := doJSON(t, http.MethodGet, base+"/patterns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view services.PatternsView
	decode(t, resp, &view)
	assert.Len(t, view.Temporal, 3, "one entry bucket fan-out")

	resp = doJSON(t, http.MethodGet, base+"/insights", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ins struct {
		Insights []model.Insight `json:"insights"`
	}
	decode(t, resp, &ins)
	assert.Empty(t, ins.Insights, "below the window gate")

	resp = doJSON(t, http.MethodPost, base+"/context", map[string]string{"text": "Met Sarah"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ctxOut map[string]string
	decode(t, resp, &ctxOut)
	assert.Equal(t, "", ctxOut["context"], "no mature pattern yet")

	resp = doJSON(t, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st model.Stats
	decode(t, resp, &st)
	assert.Equal(t, 3, st.TotalEntries)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v0/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestExport(t *testing.T) {
	srv, svc := newTestServer(t)
	_, err := svc.CreateEntry(context.Background(), "u1", "exported line #tag")
	require.NoError(t, err)
	require.NoError(t, svc.Barrier(context.Background(), "u1"))

	resp, err := http.Get(srv.URL + "/api/users/u1/export?tag=tag")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")

	bad, err := http.Get(srv.URL + "/api/users/u1/export?after=not-a-date")
	require.NoError(t, err)
	_ = bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
