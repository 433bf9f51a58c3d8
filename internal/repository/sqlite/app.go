package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository"
)

// Compile-time check that *DB satisfies the repository interface.
var _ repository.AppRepository = (*DB)(nil)

// Create inserts a new app bundle with its files in one transaction. The
// caller's struct gets the generated ID and timestamps filled in.
func (db *DB) Create(ctx context.Context, app *model.App) error {
	app.ID = xid.New().String()
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO apps (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		app.ID, app.Name, app.Description, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating app: %w", err)
	}

	if err := insertFiles(ctx, tx, app.ID, app.Files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing app: %w", err)
	}
	return nil
}

// GetByID retrieves an app and its files.
func (db *DB) GetByID(ctx context.Context, id string) (*model.App, error) {
	return db.getBy(ctx, "id", id)
}

// GetByName retrieves an app by its unique name. Used by the service layer
// to implement update-if-exists save semantics.
func (db *DB) GetByName(ctx context.Context, name string) (*model.App, error) {
	return db.getBy(ctx, "name", name)
}

func (db *DB) getBy(ctx context.Context, column, value string) (*model.App, error) {
	var app model.App
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM apps WHERE `+column+` = ?`,
		value,
	).Scan(&app.ID, &app.Name, &app.Description, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("app", value)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting app: %w", err)
	}

	files, err := db.filesFor(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	app.Files = files
	return &app, nil
}

// List returns apps ordered newest first, files included.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.App, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM apps
		 ORDER BY updated_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing apps: %w", err)
	}
	defer rows.Close()

	apps := []model.App{}
	for rows.Next() {
		var app model.App
		if err := rows.Scan(&app.ID, &app.Name, &app.Description, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning app: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating apps: %w", err)
	}

	for i := range apps {
		files, err := db.filesFor(ctx, apps[i].ID)
		if err != nil {
			return nil, err
		}
		apps[i].Files = files
	}
	return apps, nil
}

// Update replaces an app's metadata and files.
func (db *DB) Update(ctx context.Context, app *model.App) error {
	app.UpdatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE apps SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		app.Name, app.Description, app.UpdatedAt, app.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating app: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("app", app.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM app_files WHERE app_id = ?`, app.ID); err != nil {
		return fmt.Errorf("sqlite: clearing app files: %w", err)
	}
	if err := insertFiles(ctx, tx, app.ID, app.Files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing app update: %w", err)
	}
	return nil
}

// Delete removes an app; its files go with it via the foreign key cascade.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting app: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("app", id)
	}
	return nil
}

func (db *DB) filesFor(ctx context.Context, appID string) ([]model.AppFile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, source FROM app_files WHERE app_id = ? ORDER BY position`,
		appID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing app files: %w", err)
	}
	defer rows.Close()

	var files []model.AppFile
	for rows.Next() {
		var f model.AppFile
		if err := rows.Scan(&f.Name, &f.Source); err != nil {
			return nil, fmt.Errorf("sqlite: scanning app file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating app files: %w", err)
	}
	return files, nil
}

func insertFiles(ctx context.Context, tx *sql.Tx, appID string, files []model.AppFile) error {
	for i, f := range files {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO app_files (app_id, position, name, source) VALUES (?, ?, ?, ?)`,
			appID, i, f.Name, f.Source,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting app file %s: %w", f.Name, err)
		}
	}
	return nil
}
