package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository"
)

func newTestDocumentDB(t *testing.T) *DocumentDB {
	t.Helper()
	return newTestDB(t).Documents()
}

func seedDocument(t *testing.T, db *DocumentDB, id, content string) {
	t.Helper()
	if err := db.Upsert(context.Background(), &model.Document{ID: id, Content: content}); err != nil {
		t.Fatalf("Upsert(%s): %v", id, err)
	}
}

func TestDocumentUpsertAndList(t *testing.T) {
	db := newTestDocumentDB(t)
	ctx := context.Background()

	doc := &model.Document{ID: "doc1", Kind: "Documentation", Content: "streamlit apps need a main script"}
	if err := db.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if doc.CreatedAt.IsZero() {
		t.Fatal("Upsert did not set CreatedAt")
	}

	// Same ID again must refresh, not duplicate.
	doc.Kind = "Example"
	if err := db.Upsert(ctx, doc); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	docs, err := db.List(ctx, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Kind != "Example" {
		t.Errorf("Kind = %q, want %q", docs[0].Kind, "Example")
	}
}

func TestDocumentSearch(t *testing.T) {
	db := newTestDocumentDB(t)
	ctx := context.Background()

	seedDocument(t, db, "doc1", "use pandas DataFrame for tabular data")
	seedDocument(t, db, "doc2", "streamlit session state survives reruns")

	docs, err := db.Search(ctx, "how do I keep state across streamlit reruns?", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d results, want 1", len(docs))
	}
	if docs[0].ID != "doc2" {
		t.Errorf("top result = %s, want doc2", docs[0].ID)
	}
}

func TestDocumentSearchEmptyQuery(t *testing.T) {
	db := newTestDocumentDB(t)
	seedDocument(t, db, "doc1", "anything")

	// Punctuation-only queries have no word tokens and match nothing.
	docs, err := db.Search(context.Background(), "?!...", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d results, want 0", len(docs))
	}
}

func TestDocumentSearchRespectsLimit(t *testing.T) {
	db := newTestDocumentDB(t)
	ctx := context.Background()

	seedDocument(t, db, "doc1", "weather forecast api")
	seedDocument(t, db, "doc2", "weather station data")
	seedDocument(t, db, "doc3", "weather alerts feed")

	docs, err := db.Search(ctx, "weather", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d results, want 2", len(docs))
	}
}

func TestDocumentDelete(t *testing.T) {
	db := newTestDocumentDB(t)
	ctx := context.Background()

	seedDocument(t, db, "doc1", "delete me")
	if err := db.Delete(ctx, "doc1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Gone from search too, not just the main table.
	docs, err := db.Search(ctx, "delete", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("deleted document still searchable: %+v", docs)
	}

	if err := db.Delete(ctx, "doc1"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}
