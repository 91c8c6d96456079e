package postgres

import (
	"context"

	"github.com/yoockh/studybuddy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IndexRepo interface {
	Upsert(ctx context.Context, e *models.IndexEntry) error
}

type indexRepo struct {
	db *gorm.DB
}

// NewIndexRepo prepares the pgvector extension and the index table.
func NewIndexRepo(ctx context.Context, db *gorm.DB) (IndexRepo, error) {
	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&models.IndexEntry{}); err != nil {
		return nil, err
	}
	return &indexRepo{db: db}, nil
}

func (r *indexRepo) Upsert(ctx context.Context, e *models.IndexEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(e).Error
}
