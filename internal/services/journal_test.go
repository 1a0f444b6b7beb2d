package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/shardqueue"
	"github.com/spiffler33/lean-insights/internal/store/sqlite"
)

// stubExtractor returns a canned enrichment for every entry.
type stubExtractor struct {
	enr model.Enrichment
}

func (s *stubExtractor) Extract(context.Context, string, string) (model.Enrichment, error) {
	return s.enr, nil
}

func newTestService(t *testing.T, ex *stubExtractor) *JournalService {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	exec := shardqueue.NewShardExecutor(shardqueue.Config{Shards: 1, QueueSize: 64})
	t.Cleanup(exec.Stop)
	return NewJournalService(s, ex, exec, zerolog.Nop())
}

func TestJournalService_CreateEntryRunsPipeline(t *testing.T) {
	ctx := context.Background()
	ex := &stubExtractor{enr: model.Enrichment{
		Emotion: "happy",
		Themes:  []string{"social"},
		People:  []model.Person{{Name: "Sarah"}},
	}}
	j := newTestService(t, ex)

	entry, err := j.CreateEntry(ctx, "u1", "Coffee with Sarah #friends")
	require.NoError(t, err)
	assert.Equal(t, []string{"friends"}, entry.Tags)
	require.NoError(t, j.Barrier(ctx, "u1"))

	// enrichment landed on the stored entry
	got, err := j.GetEntry(ctx, "u1", entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "happy", got.Enrichment.Emotion)

	// trackers ran
	view, err := j.Patterns(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, view.Entities, 1)
	assert.Equal(t, "Sarah", view.Entities[0].Entity)
	assert.Equal(t, 1, view.Entities[0].MentionCount)
	assert.Len(t, view.Temporal, 3)
}

func TestJournalService_Validation(t *testing.T) {
	ctx := context.Background()
	j := newTestService(t, &stubExtractor{})

	_, err := j.CreateEntry(ctx, "", "text")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = j.CreateEntry(ctx, "u1", "   ")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = j.ListEntries(ctx, model.ListEntriesRequest{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestJournalService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	j := newTestService(t, &stubExtractor{})

	entry, err := j.CreateEntry(ctx, "u1", "first draft #old")
	require.NoError(t, err)
	require.NoError(t, j.Barrier(ctx, "u1"))

	updated, err := j.UpdateEntry(ctx, "u1", entry.EntryID, "second draft #new")
	require.NoError(t, err)
	assert.Equal(t, "second draft #new", updated.Content)
	assert.Equal(t, []string{"new"}, updated.Tags)
	require.NoError(t, j.Barrier(ctx, "u1"))

	require.NoError(t, j.DeleteEntry(ctx, "u1", entry.EntryID))
	require.NoError(t, j.Barrier(ctx, "u1"))
	_, err = j.GetEntry(ctx, "u1", entry.EntryID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = j.DeleteEntry(ctx, "u1", entry.EntryID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestJournalService_ExportMarkdown(t *testing.T) {
	ctx := context.Background()
	j := newTestService(t, &stubExtractor{})

	_, err := j.CreateEntry(ctx, "u1", "morning pages #daily")
	require.NoError(t, err)
	require.NoError(t, j.Barrier(ctx, "u1"))

	md, err := j.ExportMarkdown(ctx, "u1", nil, nil, "")
	require.NoError(t, err)
	assert.Contains(t, md, "# Journal Export")
	assert.Contains(t, md, "morning pages #daily")

	tagged, err := j.ExportMarkdown(ctx, "u1", nil, nil, "daily")
	require.NoError(t, err)
	assert.Contains(t, tagged, "morning pages #daily")

	other, err := j.ExportMarkdown(ctx, "u1", nil, nil, "missing")
	require.NoError(t, err)
	assert.NotContains(t, other, "morning pages")
}

func TestExtractTags(t *testing.T) {
	assert.Equal(t, []string{"work", "health"}, ExtractTags("busy day #Work then #health and #work again"))
	assert.Nil(t, ExtractTags("no tags here"))
}
