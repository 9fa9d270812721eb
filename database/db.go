package database

import (
	"fmt"
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"teslacam/logger"
	"teslacam/models"
)

// The index only lives as long as the process; it is rebuilt from the
// footage on every load.
const memoryDSN = ":memory:"

var DB *gorm.DB

func InitDB() error {
	db, err := Open()
	if err != nil {
		return err
	}
	DB = db
	logger.WithComponent("database").Info("Event index ready")
	return nil
}

// Open returns a fresh in-memory index.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open event index: %w", err)
	}
	// Every pooled connection to :memory: would be a separate database.
	db.DB().SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.EventRecord{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate event index: %w", err)
	}
	return db, nil
}

func CloseDB() {
	if DB != nil {
		DB.Close()
	}
}

// ReplaceEvents swaps the indexed rows for events in one transaction.
func ReplaceEvents(db *gorm.DB, events []*models.Event) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Unscoped().Delete(&models.EventRecord{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	for _, e := range events {
		rec := models.NewEventRecord(e)
		if err := tx.Create(&rec).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("index event %s: %w", e.ID, err)
		}
	}
	return tx.Commit().Error
}

// EventQuery filters the index. Empty fields match everything.
type EventQuery struct {
	Category string
	Reason   string
	City     string
	Limit    int
}

// SearchEvents returns matching rows, newest first; rows with no timestamp
// come last.
func SearchEvents(db *gorm.DB, q EventQuery) ([]models.EventRecord, error) {
	scope := db.Model(&models.EventRecord{})
	if q.Category != "" {
		scope = scope.Where("category = ?", q.Category)
	}
	if q.Reason != "" {
		scope = scope.Where("reason = ?", q.Reason)
	}
	if q.City != "" {
		scope = scope.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(q.City)+"%")
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}

	var records []models.EventRecord
	err := scope.
		Order("timestamp IS NULL, timestamp desc, event_id asc").
		Limit(limit).
		Find(&records).Error
	return records, err
}
