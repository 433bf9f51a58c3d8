// Package service holds the business logic for the app library. Handlers
// parse HTTP; this layer validates and decides; repositories persist.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository"
)

const (
	MaxAppNameLength    = 100
	MaxFileSourceLength = 200000 // ~200KB per generated file
	DefaultListLimit    = 20
	MaxListLimit        = 100
)

// AppService manages the library of generated app bundles.
type AppService struct {
	repo   repository.AppRepository
	logger *slog.Logger
}

func NewAppService(repo repository.AppRepository, logger *slog.Logger) *AppService {
	return &AppService{repo: repo, logger: logger}
}

// Save stores a bundle under the given name, updating in place when an app
// with that name already exists (regeneration overwrites, it never forks).
func (s *AppService) Save(ctx context.Context, name, description string, files []model.AppFile) (*model.App, error) {
	name = SanitizeName(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "app name is required")
	}
	if len(name) > MaxAppNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("app name must be %d characters or less", MaxAppNameLength))
	}
	if len(files) == 0 {
		return nil, apperror.ValidationFailed("files", "an app needs at least one file")
	}
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return nil, apperror.ValidationFailed("files", "file names must not be empty")
		}
		if len(f.Source) > MaxFileSourceLength {
			return nil, apperror.ValidationFailed("files",
				fmt.Sprintf("file %s exceeds %d characters", f.Name, MaxFileSourceLength))
		}
	}

	description = strings.TrimSpace(description)

	existing, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		existing.Description = description
		existing.Files = files
		if err := s.repo.Update(ctx, existing); err != nil {
			s.logger.Error("failed to update app", slog.String("name", name), slog.String("error", err.Error()))
			return nil, fmt.Errorf("updating app: %w", err)
		}
		s.logger.Info("app updated", slog.String("id", existing.ID), slog.String("name", name))
		return existing, nil

	case errors.Is(err, apperror.ErrNotFound):
		app := &model.App{Name: name, Description: description, Files: files}
		if err := s.repo.Create(ctx, app); err != nil {
			s.logger.Error("failed to create app", slog.String("name", name), slog.String("error", err.Error()))
			return nil, fmt.Errorf("creating app: %w", err)
		}
		s.logger.Info("app saved", slog.String("id", app.ID), slog.String("name", name))
		return app, nil

	default:
		return nil, fmt.Errorf("looking up app: %w", err)
	}
}

// GetByID retrieves one app with its files.
func (s *AppService) GetByID(ctx context.Context, id string) (*model.App, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "app ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// List retrieves apps with pagination, limit clamped to a sane range.
func (s *AppService) List(ctx context.Context, limit, offset int) ([]model.App, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	apps, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list apps", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing apps: %w", err)
	}
	return apps, nil
}

// Delete removes an app from the library.
func (s *AppService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "app ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("app deleted", slog.String("id", id))
	return nil
}

// SanitizeName lowers the name and strips everything but letters, digits,
// hyphens and underscores, so names stay shell- and URL-friendly.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
