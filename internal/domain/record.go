package domain

import (
	"time"
)

// DownloadStatus is the persisted state of a song's download record.
type DownloadStatus int

const (
	StatusPending     DownloadStatus = 0
	StatusDownloading DownloadStatus = 1
	StatusCompleted   DownloadStatus = 2
)

func (s DownloadStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Source identifies which upstream the record came from. Only the cloud
// music service exists today; the column is kept so mirror-origin records
// can be told apart later.
type Source int

const (
	SourceNetease Source = 0
	SourceMirror  Source = 1
)

// DownloadRecord is one row of the catalog: the durable download state for
// a single song id. Invariant: Downloaded == true exactly when Status ==
// StatusCompleted, and at most one worker holds StatusDownloading for a
// given id at any time.
type DownloadRecord struct {
	ID         int64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Source     Source         `json:"source" gorm:"not null;default:0"`
	Title      string         `json:"title"`
	Artist     string         `json:"artist"`
	FilePath   string         `json:"file_path"` // relative to the store root
	FileSize   int64          `json:"file_size"`
	Downloaded bool           `json:"downloaded" gorm:"not null;default:false"`
	Status     DownloadStatus `json:"status" gorm:"not null;default:0;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (DownloadRecord) TableName() string {
	return "download_records"
}

// NewPendingRecord creates a record first sighted without a finished file.
func NewPendingRecord(id int64) *DownloadRecord {
	return &DownloadRecord{
		ID:        id,
		Source:    SourceNetease,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// NewClaimedRecord creates a record born directly in the downloading state,
// for the insert side of an atomic claim.
func NewClaimedRecord(id int64) *DownloadRecord {
	return &DownloadRecord{
		ID:        id,
		Source:    SourceNetease,
		Status:    StatusDownloading,
		CreatedAt: time.Now(),
	}
}

// NewCompletedRecord creates a record for a file discovered already on
// disk, as the startup reconciliation pass does.
func NewCompletedRecord(id int64, relPath string, size int64) *DownloadRecord {
	return &DownloadRecord{
		ID:         id,
		Source:     SourceNetease,
		FilePath:   relPath,
		FileSize:   size,
		Downloaded: true,
		Status:     StatusCompleted,
		CreatedAt:  time.Now(),
	}
}

// MarkCompleted commits a successful download into the record.
func (r *DownloadRecord) MarkCompleted(title, artist, relPath string, size int64) {
	r.Title = title
	r.Artist = artist
	r.FilePath = relPath
	r.FileSize = size
	r.Downloaded = true
	r.Status = StatusCompleted
}

// ResetPending returns the record to the retryable state. Any failure path
// must land here so an id is never left stuck at downloading.
func (r *DownloadRecord) ResetPending() {
	r.Downloaded = false
	r.Status = StatusPending
}

// IsCompleted reports whether the record is a committed download.
func (r *DownloadRecord) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// Consistent checks the downloaded/status invariant.
func (r *DownloadRecord) Consistent() bool {
	return r.Downloaded == (r.Status == StatusCompleted)
}
