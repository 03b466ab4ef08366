package propertydb

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// blobRow is one version of the full database blob. The store keeps whole
// blobs per version rather than per-key rows; writers overwrite a version's
// blob as a unit.
type blobRow struct {
	Version int    `gorm:"primaryKey;column:version"`
	Blob    string `gorm:"column:blob"`
}

func (blobRow) TableName() string { return "properties" }

// Storage persists versioned database blobs in sqlite.
type Storage struct {
	db *gorm.DB
}

func NewStorage(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	if err := db.AutoMigrate(&blobRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Fetch returns the blob at the highest version, or ok=false when the store
// is empty.
func (s *Storage) Fetch() (string, bool, error) {
	var row blobRow
	err := s.db.Order("version DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Blob, true, nil
}

// Persist upserts the blob at the given version, or at the current highest
// version when version is nil (version 0 for an empty store).
func (s *Storage) Persist(blob string, version *int) error {
	target := 0
	if version != nil {
		target = *version
	} else {
		var max *int
		if err := s.db.Model(&blobRow{}).Select("MAX(version)").Scan(&max).Error; err != nil {
			return err
		}
		if max != nil {
			target = *max
		}
	}

	row := blobRow{Version: target, Blob: blob}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "version"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob"}),
	}).Create(&row).Error
}

// ServerVersion reports the backing engine version, for the infodb endpoint.
func (s *Storage) ServerVersion() (string, error) {
	var version string
	if err := s.db.Raw("SELECT sqlite_version()").Scan(&version).Error; err != nil {
		return "", err
	}
	return version, nil
}
