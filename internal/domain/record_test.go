package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadRecord_LifecycleKeepsInvariant(t *testing.T) {
	record := NewPendingRecord(210049)
	assert.Equal(t, StatusPending, record.Status)
	assert.True(t, record.Consistent())

	record.Status = StatusDownloading
	assert.True(t, record.Consistent())
	assert.False(t, record.IsCompleted())

	record.MarkCompleted("Song", "Artist", "210049-Artist - Song.mp3", 4096)
	assert.True(t, record.Consistent())
	assert.True(t, record.IsCompleted())
	assert.True(t, record.Downloaded)
	assert.Equal(t, int64(4096), record.FileSize)

	record.ResetPending()
	assert.Equal(t, StatusPending, record.Status)
	assert.False(t, record.Downloaded)
	assert.True(t, record.Consistent())
}

func TestNewClaimedRecord_IsBornDownloading(t *testing.T) {
	record := NewClaimedRecord(1)
	assert.Equal(t, StatusDownloading, record.Status)
	assert.False(t, record.Downloaded)
	assert.True(t, record.Consistent())
}

func TestNewCompletedRecord_MatchesDiscoveredFile(t *testing.T) {
	record := NewCompletedRecord(42, "42-A - B.flac", 1234)
	assert.True(t, record.IsCompleted())
	assert.True(t, record.Downloaded)
	assert.True(t, record.Consistent())
	assert.Equal(t, "42-A - B.flac", record.FilePath)
}

func TestConsistent_DetectsCorruptRow(t *testing.T) {
	record := NewPendingRecord(1)
	record.Downloaded = true // flag without completed status
	assert.False(t, record.Consistent())
}

func TestDownloadStatus_String(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "downloading", StatusDownloading.String())
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "unknown", DownloadStatus(9).String())
}
