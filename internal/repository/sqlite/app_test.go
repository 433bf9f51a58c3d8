package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testApp() *model.App {
	return &model.App{
		Name:        "tripplanner",
		Description: "plans trips by checking weather",
		Files: []model.AppFile{
			{Name: "agent.py", Source: "class TripAgent: pass"},
			{Name: "app.py", Source: "import streamlit as st"},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	app := testApp()
	if err := db.Create(ctx, app); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if app.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if app.CreatedAt.IsZero() || app.UpdatedAt.IsZero() {
		t.Fatal("Create did not set timestamps")
	}

	got, err := db.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "tripplanner" {
		t.Errorf("Name = %q, want %q", got.Name, "tripplanner")
	}
	if len(got.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(got.Files))
	}
	// File order must survive the round trip.
	if got.Files[0].Name != "agent.py" || got.Files[1].Name != "app.py" {
		t.Errorf("file order = [%s, %s], want [agent.py, app.py]", got.Files[0].Name, got.Files[1].Name)
	}

	byName, err := db.GetByName(ctx, "tripplanner")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.ID != app.ID {
		t.Errorf("GetByName ID = %q, want %q", byName.ID, app.ID)
	}
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID error = %v, want ErrNotFound", err)
	}
}

func TestUpdateReplacesFiles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	app := testApp()
	if err := db.Create(ctx, app); err != nil {
		t.Fatalf("Create: %v", err)
	}

	app.Description = "updated"
	app.Files = []model.AppFile{{Name: "agent.py", Source: "fixed source"}}
	if err := db.Update(ctx, app); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := db.GetByID(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Description != "updated" {
		t.Errorf("Description = %q, want %q", got.Description, "updated")
	}
	if len(got.Files) != 1 || got.Files[0].Source != "fixed source" {
		t.Errorf("files not replaced: %+v", got.Files)
	}
}

func TestDeleteCascadesFiles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	app := testApp()
	if err := db.Create(ctx, app); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Delete(ctx, app.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM app_files WHERE app_id = ?`, app.ID).Scan(&count); err != nil {
		t.Fatalf("counting files: %v", err)
	}
	if count != 0 {
		t.Errorf("app_files rows after delete = %d, want 0", count)
	}

	if err := db.Delete(ctx, app.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

// Foreign-key enforcement is a per-connection SQLite setting; a file-backed
// pool opens more than one connection, and every one of them must cascade.
func TestDeleteCascadesOnEveryConnection(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("opening file-backed database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	app := testApp()
	if err := db.Create(ctx, app); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Occupy the first pooled connection so Delete has to run on a fresh one.
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("pinning connection: %v", err)
	}
	defer tx.Rollback()

	if err := db.Delete(ctx, app.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tx.Rollback()

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM app_files WHERE app_id = ?`, app.ID).Scan(&count); err != nil {
		t.Fatalf("counting files: %v", err)
	}
	if count != 0 {
		t.Errorf("cascade left %d app_files rows, want 0", count)
	}
}

func TestListPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta", "gamma"} {
		app := &model.App{Name: name, Files: []model.AppFile{{Name: "app.py", Source: "pass"}}}
		if err := db.Create(ctx, app); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}

	apps, err := db.List(ctx, repository.ListOptions{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("got %d apps, want 2", len(apps))
	}
	if len(apps[0].Files) != 1 {
		t.Errorf("listed app missing files")
	}

	rest, err := db.List(ctx, repository.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("got %d apps at offset 2, want 1", len(rest))
	}
}
