// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// linkRow is the database representation of a Record. The composite unique
// index on (left_id, right_id) is what enforces the at-most-one-link-per-
// pair invariant across concurrent process instances.
type linkRow struct {
	ID               uuid.UUID  `gorm:"type:char(36);primary_key"`
	LeftID           string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_link_pair,priority:1;index"`
	RightID          string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_link_pair,priority:2"`
	PlannedQuantity  *float64   `gorm:"type:decimal(12,3)"`
	ConsumedQuantity *float64   `gorm:"type:decimal(12,3)"`
	ConsumedAt       *time.Time `gorm:"type:timestamp"`
	LocationID       *string    `gorm:"type:varchar(64)"`
	Metadata         *string    `gorm:"type:json"`
	TransactionID    string     `gorm:"type:char(36);not null;index"`
	CreatedAt        time.Time  `gorm:"type:timestamp;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the database table name
func (linkRow) TableName() string {
	return "entity_links"
}

// BeforeCreate is a GORM hook, called before creating a record
func (row *linkRow) BeforeCreate(tx *gorm.DB) (err error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return
}

func (row *linkRow) toRecord() (*Record, error) {
	record := &Record{
		LeftID:  row.LeftID,
		RightID: row.RightID,
		Attributes: Attributes{
			PlannedQuantity:  row.PlannedQuantity,
			ConsumedQuantity: row.ConsumedQuantity,
			ConsumedAt:       row.ConsumedAt,
			LocationID:       row.LocationID,
		},
		TransactionID: row.TransactionID,
		CreatedAt:     row.CreatedAt,
	}
	if row.Metadata != nil && *row.Metadata != "" {
		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(*row.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode link metadata: %w", err)
		}
		record.Attributes.Metadata = metadata
	}
	return record.Clone(), nil
}

func rowFromRecord(record *Record) (*linkRow, error) {
	row := &linkRow{
		LeftID:           record.LeftID,
		RightID:          record.RightID,
		PlannedQuantity:  record.Attributes.PlannedQuantity,
		ConsumedQuantity: record.Attributes.ConsumedQuantity,
		ConsumedAt:       record.Attributes.ConsumedAt,
		LocationID:       record.Attributes.LocationID,
		TransactionID:    record.TransactionID,
		CreatedAt:        record.CreatedAt,
	}
	if record.Attributes.Metadata != nil {
		encoded, err := json.Marshal(record.Attributes.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode link metadata: %w", err)
		}
		s := string(encoded)
		row.Metadata = &s
	}
	return row, nil
}

// GormStore is a gorm-backed Store for production deployments. Duplicate
// inserts surface as ErrDuplicateLink via gorm's translated duplicated-key
// error, which requires the *gorm.DB to be opened with TranslateError
// enabled (OpenMySQL does this).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an existing gorm database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// MySQLConfig configures OpenMySQL.
type MySQLConfig struct {
	// DSN is the go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/atelier?parseTime=true".
	DSN string `mapstructure:"dsn"`

	// MaxOpenConns bounds the connection pool. Zero keeps the driver default.
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// OpenMySQL opens a gorm MySQL handle with duplicate-key translation
// enabled and migrates the link table.
func OpenMySQL(config *MySQLConfig) (*gorm.DB, error) {
	if config == nil || config.DSN == "" {
		return nil, errors.New("mysql link store requires a DSN")
	}

	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql link store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access mysql connection pool: %w", err)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}

	if err := db.AutoMigrate(&linkRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate link table: %w", err)
	}
	return db, nil
}

// Insert implements Store.
func (s *GormStore) Insert(ctx context.Context, record *Record) error {
	row, err := rowFromRecord(record)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLink
		}
		return err
	}
	return nil
}

// Delete implements Store.
func (s *GormStore) Delete(ctx context.Context, key Key) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("left_id = ? AND right_id = ?", key.LeftID, key.RightID).
		Delete(&linkRow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, key Key) (*Record, error) {
	var row linkRow
	err := s.db.WithContext(ctx).
		Where("left_id = ? AND right_id = ?", key.LeftID, key.RightID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return row.toRecord()
}

// ListByLeft implements Store.
func (s *GormStore) ListByLeft(ctx context.Context, leftID string) ([]*Record, error) {
	var rows []linkRow
	err := s.db.WithContext(ctx).
		Where("left_id = ?", leftID).
		Order("created_at, right_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
