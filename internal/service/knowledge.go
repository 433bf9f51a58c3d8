package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository"
)

const (
	// DefaultSearchLimit bounds how many documents feed the generation
	// context.
	DefaultSearchLimit = 5

	contextHeader = "\n\n--- Relevant Knowledge Base Content ---\n"
	contextFooter = "\n--------------------------------------\n"
)

// KnowledgeService manages the knowledge base: freeform documents that can
// be retrieved by keyword search and folded into generation prompts.
type KnowledgeService struct {
	repo   repository.DocumentRepository
	logger *slog.Logger
}

func NewKnowledgeService(repo repository.DocumentRepository, logger *slog.Logger) *KnowledgeService {
	return &KnowledgeService{repo: repo, logger: logger}
}

// Add stores a document. The ID is a hash of the content, so the same text
// added twice refreshes the existing entry instead of duplicating it.
func (s *KnowledgeService) Add(ctx context.Context, content, kind string) (*model.Document, error) {
	// NUL bytes break text storage; replace rather than reject.
	content = strings.ReplaceAll(content, "\x00", "�")
	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "document content is required")
	}

	sum := sha256.Sum256([]byte(content))
	doc := &model.Document{
		ID:      hex.EncodeToString(sum[:]),
		Kind:    strings.TrimSpace(kind),
		Content: content,
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		s.logger.Error("failed to store document", slog.String("error", err.Error()))
		return nil, fmt.Errorf("storing document: %w", err)
	}

	s.logger.Info("document added", slog.String("id", doc.ID), slog.String("kind", doc.Kind))
	return doc, nil
}

// Search returns documents relevant to the query, most relevant first.
func (s *KnowledgeService) Search(ctx context.Context, query string, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	docs, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("knowledge search failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	return docs, nil
}

// List returns stored documents with pagination, limit clamped as for apps.
func (s *KnowledgeService) List(ctx context.Context, limit, offset int) ([]model.Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document from the knowledge base.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "document ID is required")
	}
	return s.repo.Delete(ctx, id)
}

// ContextBlock formats retrieved documents as a delimited block to append to
// a generation prompt. Empty input yields an empty string, meaning the
// prompt goes out unaugmented.
func ContextBlock(docs []model.Document) string {
	if len(docs) == 0 {
		return ""
	}
	items := make([]string, len(docs))
	for i, d := range docs {
		items[i] = d.Content
	}
	return contextHeader + strings.Join(items, "\n---\n") + contextFooter
}
