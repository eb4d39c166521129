package app

import (
	"context"

	"pdf-chatbot-backend/internal/model"
)

type NopObserver struct{}

func (NopObserver) DocumentIngested(context.Context, model.DocumentIngested) error {
	return nil
}

type DocumentRegistry interface {
	Upsert(ctx context.Context, record *model.DocumentRecord) error
}

// RegistryObserver records ingested documents in the registry directly.
type RegistryObserver struct {
	registry DocumentRegistry
}

func NewRegistryObserver(registry DocumentRegistry) *RegistryObserver {
	return &RegistryObserver{registry: registry}
}

func (o *RegistryObserver) DocumentIngested(ctx context.Context, event model.DocumentIngested) error {
	record := event.Record()
	return o.registry.Upsert(ctx, &record)
}
