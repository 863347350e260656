package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	_, err := store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "a", Filename: "a.txt", CreatedAt: base}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "b", Filename: "b.txt", CreatedAt: base.Add(time.Minute)}))

	list, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	doc, err := store.GetDocument(ctx, "a")
	require.NoError(t, err)
	doc.Filename = "mutated"
	again, _ := store.GetDocument(ctx, "a")
	assert.Equal(t, "a.txt", again.Filename, "returned documents are copies")

	require.NoError(t, store.DeleteDocument(ctx, "a"))
	_, err = store.GetDocument(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.SaveDocument(ctx, &domain.Document{ID: string(rune('a' + i%26))})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.ListDocuments(ctx)
		}()
	}
	wg.Wait()
}

func TestCorpusRunStore(t *testing.T) {
	ctx := context.Background()
	store := NewCorpusRunStore()

	_, err := store.LastRun(ctx, "/src")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SaveRun(ctx, domain.CorpusStats{Source: "/src", Files: 1}))
	require.NoError(t, store.SaveRun(ctx, domain.CorpusStats{Source: "/src", Files: 2}))

	last, err := store.LastRun(ctx, "/src")
	require.NoError(t, err)
	assert.Equal(t, 2, last.Files)
	assert.True(t, last.Indexed)
	assert.False(t, last.FinishedAt.IsZero())
}

func TestDocumentStore_Ordering(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := NewDocumentStore()
	store.now = func() time.Time { return stamp }

	unstamped := &domain.Document{ID: "c"}
	require.NoError(t, store.SaveDocument(ctx, unstamped))
	assert.Equal(t, stamp, unstamped.CreatedAt)

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "a", CreatedAt: stamp}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "b", CreatedAt: stamp.Add(-time.Hour)}))

	list, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, d := range list {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"a", "c", "b"}, ids)
}
