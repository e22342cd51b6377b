package domain

// CatalogRepository defines the interface for download record persistence.
// Claim is the single serialization point of the whole engine: it must be
// transactionally atomic even across processes sharing the same catalog.
type CatalogRepository interface {
	// Claim attempts the absent→Downloading or Pending→Downloading
	// transition for id. It returns true for exactly one concurrent
	// caller; ids already Downloading or Completed are left untouched
	// and report false with a nil error.
	Claim(id int64) (bool, error)

	// Create inserts a new record.
	Create(record *DownloadRecord) error

	// Update writes the full record back.
	Update(record *DownloadRecord) error

	// Upsert inserts the record or overwrites an existing row with the
	// same id, used by the startup reconciliation pass.
	Upsert(record *DownloadRecord) error

	// Delete removes a record by song id.
	Delete(id int64) error

	// FindByID finds a record, returning (nil, nil) when absent.
	FindByID(id int64) (*DownloadRecord, error)

	// FindByStatus lists records in a given status.
	FindByStatus(status DownloadStatus) ([]*DownloadRecord, error)

	// FindAll lists records with optional column filters.
	FindAll(filters map[string]interface{}) ([]*DownloadRecord, error)

	// ResetStale returns every Downloading row to Pending and reports how
	// many rows were repaired. Run at startup, before workers exist.
	ResetStale() (int64, error)

	// Count returns the total number of records.
	Count() (int64, error)

	// GetStats returns catalog statistics.
	GetStats() (*CatalogStats, error)

	// Close releases the underlying store.
	Close() error
}

// CatalogStats summarizes the catalog by status.
type CatalogStats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	Downloading int64 `json:"downloading"`
	Completed   int64 `json:"completed"`
	TotalBytes  int64 `json:"total_bytes"`
}
