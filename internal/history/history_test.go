package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"videogen/internal/domain"
)

func TestAddAssignsIncreasingIDsNewestFirst(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.Add(domain.HistoryEntry{Prompt: fmt.Sprintf("prompt %d", i)})
		require.NoError(t, err)
	}

	entries := store.List()
	require.Len(t, entries, 3)
	require.Equal(t, 3, entries[0].ID)
	require.Equal(t, "prompt 2", entries[0].Prompt)
	require.Equal(t, 1, entries[2].ID)
}

func TestRingDropsOldestPastCap(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	for i := 0; i < maxEntries+5; i++ {
		_, err := store.Add(domain.HistoryEntry{Prompt: fmt.Sprintf("prompt %d", i)})
		require.NoError(t, err)
	}

	entries := store.List()
	require.Len(t, entries, maxEntries)
	require.Equal(t, fmt.Sprintf("prompt %d", maxEntries+4), entries[0].Prompt)
}

func TestStoreSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	_, err = store.Add(domain.HistoryEntry{Prompt: "a fox", Settings: domain.DefaultSettings()})
	require.NoError(t, err)

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	entries := reloaded.List()
	require.Len(t, entries, 1)
	require.Equal(t, "a fox", entries[0].Prompt)
	require.Equal(t, 512, entries[0].Settings.Width)

	// IDs keep increasing across restarts.
	added, err := reloaded.Add(domain.HistoryEntry{Prompt: "a wolf"})
	require.NoError(t, err)
	require.Equal(t, 2, added.ID)
}

func TestDeleteRemovesEntryAndVideo(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("video"), 0o644))

	store, err := NewStore(filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	added, err := store.Add(domain.HistoryEntry{Prompt: "a fox", VideoPath: videoPath})
	require.NoError(t, err)

	require.NoError(t, store.Delete(added.ID))
	require.Empty(t, store.List())
	_, statErr := os.Stat(videoPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)

	require.ErrorIs(t, store.Delete(added.ID), domain.ErrNotFound)
}

func TestSearchStoreRing(t *testing.T) {
	store, err := NewSearchStore(filepath.Join(t.TempDir(), "search.json"))
	require.NoError(t, err)

	for i := 0; i < maxSearchEntries+3; i++ {
		_, err := store.Add(domain.SearchEntry{OriginalPrompt: fmt.Sprintf("prompt %d", i)})
		require.NoError(t, err)
	}
	entries := store.List()
	require.Len(t, entries, maxSearchEntries)
	require.Equal(t, fmt.Sprintf("prompt %d", maxSearchEntries+2), entries[0].OriginalPrompt)
}

func TestCloudQueueLatest(t *testing.T) {
	queue, err := NewCloudQueue(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)

	_, ok := queue.Latest()
	require.False(t, ok)

	for i := 0; i < maxCloudEntries+2; i++ {
		require.NoError(t, queue.Add(CloudSubmission{JobID: fmt.Sprintf("job-%d", i)}))
	}
	require.Len(t, queue.List(), maxCloudEntries)

	latest, ok := queue.Latest()
	require.True(t, ok)
	require.Equal(t, fmt.Sprintf("job-%d", maxCloudEntries+1), latest.JobID)
}

func TestCSVAppendAndLoad(t *testing.T) {
	csvStore := NewCSVStore(filepath.Join(t.TempDir(), "videos.csv"))

	settings := domain.DefaultSettings()
	settings.VideoStyle = domain.StyleAnime
	first, err := csvStore.Append(domain.VideoRecord{
		Prompt:    "a fox, with \"quotes\" and, commas",
		Model:     "test-model",
		Settings:  settings,
		VideoPath: "/videos/1.mp4",
		Source:    "cloud",
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.ID)

	second, err := csvStore.Append(domain.VideoRecord{Prompt: "a wolf", Model: "test-model"})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)
	require.Equal(t, "local", second.Source)

	records, err := csvStore.Load(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a wolf", records[0].Prompt)
	require.Equal(t, "a fox, with \"quotes\" and, commas", records[1].Prompt)
	require.Equal(t, domain.StyleAnime, records[1].Settings.VideoStyle)
	require.Equal(t, "cloud", records[1].Source)

	limited, err := csvStore.Load(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "a wolf", limited[0].Prompt)
}

func TestSinkToleratesNilStores(t *testing.T) {
	sink := NewSink(nil, nil, nil, nil, nil)
	sink.VideoGenerated(domain.HistoryEntry{}, domain.VideoRecord{})
	sink.PromptAnalyzed(domain.SearchEntry{})
	sink.CloudSubmitted(CloudSubmission{})
}
