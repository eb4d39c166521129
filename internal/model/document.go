package model

import "time"

// DocumentRecord is the registry row written after each successful ingest.
type DocumentRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DocumentID   string    `gorm:"size:255;not null;uniqueIndex" json:"document_id"`
	ArtifactName string    `gorm:"size:255;not null" json:"artifact_name"`
	PageCount    int       `gorm:"not null" json:"page_count"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DocumentRecord) TableName() string {
	return "documents"
}

type DocumentIngested struct {
	DocumentID   string    `json:"document_id"`
	ArtifactName string    `json:"artifact_name"`
	PageCount    int       `json:"page_count"`
	SizeBytes    int64     `json:"size_bytes"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Record converts the event into the registry row it describes.
func (e DocumentIngested) Record() DocumentRecord {
	return DocumentRecord{
		DocumentID:   e.DocumentID,
		ArtifactName: e.ArtifactName,
		PageCount:    e.PageCount,
		SizeBytes:    e.SizeBytes,
	}
}

// DocumentInfo describes a stored document as seen on disk.
type DocumentInfo struct {
	DocumentID   string    `json:"document_id"`
	ArtifactName string    `json:"artifact_name"`
	SizeBytes    int64     `json:"size_bytes"`
	UpdatedAt    time.Time `json:"updated_at"`
}
