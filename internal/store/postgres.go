package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"sdcp-backend/internal/models"
)

// recordRow is the single table backing every collection: records are kept
// as jsonb payloads keyed by (collection, id), so updates touch one row
// instead of rewriting a whole collection file.
type recordRow struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:64"`
	Data       []byte `gorm:"type:jsonb;not null"`
}

func (recordRow) TableName() string { return "records" }

// PGStore is a Store backed by the shared records table.
type PGStore[T any] struct {
	db         *gorm.DB
	collection string
	id         func(T) string
}

func NewPGStore[T any](db *gorm.DB, collection string, id func(T) string) *PGStore[T] {
	return &PGStore[T]{db: db, collection: collection, id: id}
}

func (s *PGStore[T]) All(ctx context.Context) ([]T, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", s.collection).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", s.collection, err)
	}
	recs := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		if err := json.Unmarshal(row.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", s.collection, row.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *PGStore[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var row recordRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", s.collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("load %s/%s: %w", s.collection, id, err)
	}
	var rec T
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", s.collection, id, err)
	}
	return rec, nil
}

func (s *PGStore[T]) Upsert(ctx context.Context, rec T) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", s.collection, err)
	}
	row := recordRow{Collection: s.collection, ID: s.id(rec), Data: raw}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data"}),
		}).
		Create(&row).Error
}

func (s *PGStore[T]) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", s.collection, id).
		Delete(&recordRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// NewPGStores connects to Postgres, migrates the records table, and returns
// stores for every collection.
func NewPGStores(databaseURL string) (*Stores, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	log.Printf("✅ Connected to Postgres record store")
	return &Stores{
		Users:        NewPGStore(db, "users", func(u models.User) string { return u.ID.String() }),
		Referrals:    NewPGStore(db, "referrals", func(r models.Referral) string { return r.ID.String() }),
		Estimates:    NewPGStore(db, "estimates", func(e models.Estimate) string { return e.ID.String() }),
		Testimonials: NewPGStore(db, "testimonials", func(t models.Testimonial) string { return t.ID.String() }),
		Examples:     NewPGStore(db, "examples", func(e models.Example) string { return e.ID.String() }),
	}, nil
}
