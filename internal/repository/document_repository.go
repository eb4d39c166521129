package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pdf-chatbot-backend/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert inserts the record or, when the document id already exists,
// refreshes its artifact details.
func (r *DocumentRepository) Upsert(ctx context.Context, record *model.DocumentRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"artifact_name", "page_count", "size_bytes", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("upsert document record failed: %w", err)
	}
	return nil
}
