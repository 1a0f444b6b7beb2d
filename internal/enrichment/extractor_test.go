package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffler33/lean-insights/internal/model"
)

func TestOllamaExtractor_ParsesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": "{\"emotion\": \"Happy\", \"themes\": [\"social\", \"Coffee\", \"work\", \"extra\"], \"people\": [{\"name\": \"Sarah\", \"sentiment\": \"Positive\"}], \"urgency\": \"none\"}"}`))
	}))
	defer srv.Close()

	ex := NewOllama(srv.URL, "llama3.2", time.Second, zerolog.Nop())
	enr, err := ex.Extract(context.Background(), "Coffee with Sarah this morning", "Sarah: 10 mentions [work 100%]")
	require.NoError(t, err)
	assert.Equal(t, "happy", enr.Emotion)
	assert.Equal(t, []string{"social", "coffee", "work"}, enr.Themes, "themes lowercased and capped at 3")
	require.Len(t, enr.People, 1)
	assert.Equal(t, model.Person{Name: "Sarah", Sentiment: "positive"}, enr.People[0])
	assert.Equal(t, model.UrgencyNone, enr.Urgency)
}

func TestOllamaExtractor_DegradesToZeroSignal(t *testing.T) {
	t.Run("server down", func(t *testing.T) {
		ex := NewOllama("http://127.0.0.1:1", "llama3.2", 200*time.Millisecond, zerolog.Nop())
		enr, err := ex.Extract(context.Background(), "some entry", "")
		require.NoError(t, err)
		assert.Equal(t, model.Enrichment{}, enr)
	})

	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusInternalServerError)
		}))
		defer srv.Close()
		ex := NewOllama(srv.URL, "llama3.2", time.Second, zerolog.Nop())
		enr, err := ex.Extract(context.Background(), "some entry", "")
		require.NoError(t, err)
		assert.Equal(t, model.Enrichment{}, enr)
	})

	t.Run("garbage reply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response": "sorry, I cannot help with that"}`))
		}))
		defer srv.Close()
		ex := NewOllama(srv.URL, "llama3.2", time.Second, zerolog.Nop())
		enr, err := ex.Extract(context.Background(), "some entry", "")
		require.NoError(t, err)
		assert.Equal(t, model.Enrichment{}, enr)
	})

	t.Run("empty content short-circuits", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
		defer srv.Close()
		ex := NewOllama(srv.URL, "llama3.2", time.Second, zerolog.Nop())
		enr, err := ex.Extract(context.Background(), "   ", "")
		require.NoError(t, err)
		assert.Equal(t, model.Enrichment{}, enr)
		assert.False(t, called)
	})
}

func TestParseReply_ProseAroundObject(t *testing.T) {
	enr := parseReply("Here is the analysis: {\"emotion\": \"calm\", \"urgency\": \"low\"} Hope that helps!")
	assert.Equal(t, "calm", enr.Emotion)
	assert.Equal(t, model.UrgencyLow, enr.Urgency)

	assert.Equal(t, model.Enrichment{}, parseReply("no json here"))
}
