package infrastructure

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

// SQLiteCatalogRepository implements CatalogRepository using SQLite
type SQLiteCatalogRepository struct {
	db *gorm.DB
}

// NewSQLiteCatalogRepository opens (or creates) the catalog database and
// migrates the schema
func NewSQLiteCatalogRepository(dbPath string) (*SQLiteCatalogRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// SQLite allows a single writer; serializing the pool turns
	// concurrent claims into queued ones instead of SQLITE_BUSY errors.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteCatalogRepository{db: db}, nil
}

// Claim atomically takes ownership of a song id. If no record exists one
// is inserted in Downloading state; if a Pending record exists it is
// moved to Downloading. Both steps are conditional writes, so out of any
// number of concurrent callers exactly one wins.
func (r *SQLiteCatalogRepository) Claim(id int64) (bool, error) {
	record := domain.NewClaimedRecord(id)
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Record already exists: only a Pending one may be re-claimed.
	res = r.db.Model(&domain.DownloadRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusDownloading)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Create creates a new record
func (r *SQLiteCatalogRepository) Create(record *domain.DownloadRecord) error {
	return r.db.Create(record).Error
}

// Update updates an existing record
func (r *SQLiteCatalogRepository) Update(record *domain.DownloadRecord) error {
	return r.db.Save(record).Error
}

// Upsert inserts a record or replaces all columns of an existing one
func (r *SQLiteCatalogRepository) Upsert(record *domain.DownloadRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
}

// Delete deletes a record by ID
func (r *SQLiteCatalogRepository) Delete(id int64) error {
	return r.db.Delete(&domain.DownloadRecord{}, "id = ?", id).Error
}

// FindByID finds a record by ID. Returns (nil, nil) when absent.
func (r *SQLiteCatalogRepository) FindByID(id int64) (*domain.DownloadRecord, error) {
	var record domain.DownloadRecord
	err := r.db.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStatus finds records by status
func (r *SQLiteCatalogRepository) FindByStatus(status domain.DownloadStatus) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	err := r.db.Where("status = ?", status).Find(&records).Error
	return records, err
}

// FindAll finds all records with optional filters
func (r *SQLiteCatalogRepository) FindAll(filters map[string]interface{}) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// ResetStale moves every Downloading record back to Pending. Run at
// startup: any record still Downloading then belongs to a crashed run.
func (r *SQLiteCatalogRepository) ResetStale() (int64, error) {
	res := r.db.Model(&domain.DownloadRecord{}).
		Where("status = ?", domain.StatusDownloading).
		Update("status", domain.StatusPending)
	return res.RowsAffected, res.Error
}

// Count returns the total number of records
func (r *SQLiteCatalogRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.DownloadRecord{}).Count(&count).Error
	return count, err
}

// GetStats returns catalog statistics
func (r *SQLiteCatalogRepository) GetStats() (*domain.CatalogStats, error) {
	stats := &domain.CatalogStats{}

	if err := r.db.Model(&domain.DownloadRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	counts := []struct {
		status domain.DownloadStatus
		dest   *int64
	}{
		{domain.StatusPending, &stats.Pending},
		{domain.StatusDownloading, &stats.Downloading},
		{domain.StatusCompleted, &stats.Completed},
	}
	for _, c := range counts {
		if err := r.db.Model(&domain.DownloadRecord{}).
			Where("status = ?", c.status).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := r.db.Model(&domain.DownloadRecord{}).
		Where("status = ?", domain.StatusCompleted).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&stats.TotalBytes).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteCatalogRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
