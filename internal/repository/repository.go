// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/agentforge/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type AppRepository interface {
	Create(ctx context.Context, app *model.App) error
	GetByID(ctx context.Context, id string) (*model.App, error)
	GetByName(ctx context.Context, name string) (*model.App, error)
	List(ctx context.Context, opts ListOptions) ([]model.App, error)
	Update(ctx context.Context, app *model.App) error
	Delete(ctx context.Context, id string) error
}

type DocumentRepository interface {
	// Upsert inserts the document or refreshes it when the content-hash ID
	// already exists.
	Upsert(ctx context.Context, doc *model.Document) error
	List(ctx context.Context, opts ListOptions) ([]model.Document, error)
	// Search returns up to limit documents ranked by relevance to the query.
	Search(ctx context.Context, query string, limit int) ([]model.Document, error)
	Delete(ctx context.Context, id string) error
}
