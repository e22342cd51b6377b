package infrastructure

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteCatalogRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "catalog-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewSQLiteCatalogRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func TestClaim_AbsentRecordIsClaimed(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ok, err := repo.Claim(210049)
	require.NoError(t, err)
	assert.True(t, ok)

	record, err := repo.FindByID(210049)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.StatusDownloading, record.Status)
}

func TestClaim_PendingRecordIsClaimed(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Create(domain.NewPendingRecord(210049)))

	ok, err := repo.Claim(210049)
	require.NoError(t, err)
	assert.True(t, ok)

	record, err := repo.FindByID(210049)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDownloading, record.Status)
}

func TestClaim_DownloadingAndCompletedAreNotReclaimed(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ok, err := repo.Claim(210049)
	require.NoError(t, err)
	require.True(t, ok)

	// Second claim on a Downloading record loses.
	ok, err = repo.Claim(210049)
	require.NoError(t, err)
	assert.False(t, ok)

	record, err := repo.FindByID(210049)
	require.NoError(t, err)
	record.MarkCompleted("Song", "Artist", "Artist - Song.mp3", 4096)
	require.NoError(t, repo.Update(record))

	ok, err = repo.Claim(210049)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaim_ConcurrentCallersExactlyOneWins(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	const callers = 16
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Claim(210049)
			require.NoError(t, err)
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
}

func TestFindByID_ReturnsNilWhenAbsent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	record, err := repo.FindByID(999999)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestResetStale_RepairsDownloadingRecords(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	ok, err := repo.Claim(1)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.Claim(2)
	require.NoError(t, err)
	require.True(t, ok)

	done := domain.NewCompletedRecord(3, "Artist - Song.flac", 1024)
	require.NoError(t, repo.Create(done))

	repaired, err := repo.ResetStale()
	require.NoError(t, err)
	assert.Equal(t, int64(2), repaired)

	pending, err := repo.FindByStatus(domain.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	completed, err := repo.FindByID(3)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
}

func TestUpsert_OverwritesExistingRecord(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Create(domain.NewPendingRecord(210049)))

	replacement := domain.NewCompletedRecord(210049, "Artist - Song.mp3", 2048)
	require.NoError(t, repo.Upsert(replacement))

	record, err := repo.FindByID(210049)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	assert.Equal(t, int64(2048), record.FileSize)
	assert.True(t, record.Downloaded)
}

func TestGetStats_AggregatesByStatus(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.Create(domain.NewPendingRecord(1)))
	require.NoError(t, repo.Create(domain.NewClaimedRecord(2)))
	require.NoError(t, repo.Create(domain.NewCompletedRecord(3, "B - A.mp3", 100)))
	require.NoError(t, repo.Create(domain.NewCompletedRecord(4, "D - C.flac", 250)))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Downloading)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(350), stats.TotalBytes)
}
