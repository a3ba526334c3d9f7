package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"revcore/internal/plan"
)

func samplePlan() *plan.ExecutionPlan {
	return &plan.ExecutionPlan{
		SessionID: "sess-1",
		Tasks: []plan.Task{
			{ID: "t1", Description: "add a file", Status: plan.StatusCompleted},
			{ID: "t2", Description: "edit a file", Status: plan.StatusInProgress},
			{ID: "t3", Description: "fix a bug", Status: plan.StatusPending},
		},
	}
}

func TestBuildResumeInfoCountsAndNext(t *testing.T) {
	info := BuildResumeInfo(samplePlan())
	require.Equal(t, 3, info.TasksTotal)
	require.Equal(t, 1, info.TasksCompleted)
	require.Equal(t, 2, info.TasksPending, "in_progress + pending")
	require.Equal(t, "fix a bug", info.NextTaskDescription)
	require.Equal(t, float64(1)/float64(3)*100, info.ProgressPercent)
}

func TestStoreSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	doc := NewDocument("sess-1", 1, samplePlan(), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	path, err := store.Save(doc)
	require.NoError(t, err)
	require.Equal(t, "checkpoint_sess-1_0001_20260102T030405Z.json", filepath.Base(path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.Equal(t, "sess-1", loaded.SessionID)
	require.Equal(t, 1, loaded.CheckpointNumber)
	require.Len(t, loaded.Plan.Tasks, 3)
	require.Equal(t, 1, loaded.ResumeInfo.TasksCompleted)
}

func TestStoreLoadLatestReturnsMostRecentCheckpointNumber(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		doc := NewDocument("sess-1", i, samplePlan(), base.Add(time.Duration(i)*time.Second))
		_, err := store.Save(doc)
		require.NoErrorf(t, err, "Save(%d)", i)
	}

	latest, err := store.LoadLatest("sess-1")
	require.NoError(t, err)
	require.Equal(t, 3, latest.CheckpointNumber)
}

func TestStorePrunesBeyondRetention(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	store.Retention = 2

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 1; i <= 4; i++ {
		doc := NewDocument("sess-1", i, samplePlan(), base.Add(time.Duration(i)*time.Second))
		_, err := store.Save(doc)
		require.NoErrorf(t, err, "Save(%d)", i)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "retention")

	latest, err := store.LoadLatest("sess-1")
	require.NoError(t, err)
	require.Equal(t, 4, latest.CheckpointNumber)
}

func TestStoreLoadLatestKeepsSessionsSeparate(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := store.Save(NewDocument("sess-a", 1, samplePlan(), base))
	require.NoError(t, err)
	_, err = store.Save(NewDocument("sess-b", 1, samplePlan(), base.Add(time.Minute)))
	require.NoError(t, err)

	latestA, err := store.LoadLatest("sess-a")
	require.NoError(t, err)
	require.Equal(t, "sess-a", latestA.SessionID)
}

func TestStoreListReturnsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		doc := NewDocument("sess-1", i, samplePlan(), base.Add(time.Duration(i)*time.Second))
		_, err := store.Save(doc)
		require.NoErrorf(t, err, "Save(%d)", i)
	}

	paths, err := store.List("sess-1")
	require.NoError(t, err)
	require.Len(t, paths, 3)
	require.Equal(t, "checkpoint_sess-1_0001_20260102T030406Z.json", filepath.Base(paths[0]))
	require.Equal(t, "checkpoint_sess-1_0003_20260102T030408Z.json", filepath.Base(paths[2]))
}

func TestStoreListEmptyForUnknownSession(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	paths, err := store.List("nobody")
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestResetInProgressResetsInProgressAndStoppedOnly(t *testing.T) {
	p := samplePlan()
	p.Tasks = append(p.Tasks, plan.Task{ID: "t4", Status: plan.StatusStopped})
	p.Tasks = append(p.Tasks, plan.Task{ID: "t5", Status: plan.StatusFailed})

	reset := ResetInProgress(p)
	require.Equal(t, 2, reset)

	require.Equal(t, plan.StatusPending, p.TaskByID("t2").Status, "was in_progress")
	require.Equal(t, plan.StatusPending, p.TaskByID("t4").Status, "was stopped")
	require.Equal(t, plan.StatusCompleted, p.TaskByID("t1").Status, "unchanged completed")
	require.Equal(t, plan.StatusFailed, p.TaskByID("t5").Status, "unchanged failed")
}

func TestIndexRecordAndLatestPath(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		doc := NewDocument("sess-1", i, samplePlan(), base.Add(time.Duration(i)*time.Second))
		err := idx.Record(doc, filepath.Join(dir, fileName(doc)))
		require.NoErrorf(t, err, "Record(%d)", i)
	}

	path, err := idx.LatestPath("sess-1")
	require.NoError(t, err)
	require.Equal(t, "checkpoint_sess-1_0003_20260102T030408Z.json", filepath.Base(path))

	paths, err := idx.ListSession("sess-1", 10)
	require.NoError(t, err)
	require.Len(t, paths, 3)
}

func TestIndexLatestPathEmptyForUnknownSession(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	path, err := idx.LatestPath("nobody")
	require.NoError(t, err)
	require.Empty(t, path)
}

func TestIndexPruneRemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		doc := NewDocument("sess-1", i, samplePlan(), base.Add(time.Duration(i)*time.Second))
		err := idx.Record(doc, filepath.Join(dir, fileName(doc)))
		require.NoErrorf(t, err, "Record(%d)", i)
	}

	require.NoError(t, idx.Prune("sess-1", []int{2, 3}))

	paths, err := idx.ListSession("sess-1", 10)
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestRebuildRepopulatesIndexFromDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		doc := NewDocument("sess-1", i, samplePlan(), base.Add(time.Duration(i)*time.Second))
		_, err := store.Save(doc)
		require.NoErrorf(t, err, "Save(%d)", i)
	}

	idx, err := OpenIndex(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, Rebuild(dir, idx))

	latest, err := idx.LatestPath("sess-1")
	require.NoError(t, err)
	require.NotEmpty(t, latest, "expected Rebuild() to populate an index entry")
}
