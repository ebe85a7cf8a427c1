package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleCatalog() *catalog.Catalog {
	return &catalog.Catalog{Categories: []*catalog.Category{
		{
			ID:          "lime-paint",
			Name:        "Краска известковая",
			Description: "Известковые краски для реставрации",
			Products: []*catalog.Product{{
				ID:          "lime-paint-1",
				Name:        "Краска известковая фасадная",
				Description: "Паропроницаемая краска",
				URL:         "https://stone-technology.info/product/kraska-izvestkovaya/fasadnaya/",
				Consumption: "0,2 л/м²",
			}},
		},
		{ID: "cleaners", Name: "Очистители", Products: []*catalog.Product{}},
	}}
}

// --- JSON store ---

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "catalog.json")
	s := NewJSONStore(path, testLogger)
	ctx := context.Background()

	if err := s.Save(ctx, sampleCatalog()); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "Краска известковая") {
		t.Error("non-ASCII text should be written unescaped")
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Categories) != 2 || got.ProductCount() != 1 {
		t.Fatalf("got %d categories, %d products", len(got.Categories), got.ProductCount())
	}
	if p, _ := got.Product("lime-paint-1"); p == nil || p.Consumption != "0,2 л/м²" {
		t.Errorf("product = %+v", p)
	}
}

func TestJSONStoreOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	s := NewJSONStore(path, testLogger)
	ctx := context.Background()

	if err := s.Save(ctx, sampleCatalog()); err != nil {
		t.Fatal(err)
	}
	smaller := &catalog.Catalog{Categories: []*catalog.Category{{ID: "repair", Name: "Ремонт", Products: []*catalog.Product{}}}}
	if err := s.Save(ctx, smaller); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Categories) != 1 || got.Categories[0].ID != "repair" {
		t.Errorf("categories = %+v", got.Categories)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "absent.json"), testLogger)
	_, err := s.Load(context.Background())
	if !errors.Is(err, types.ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "json" {
		t.Errorf("expected json StorageError, got %v", err)
	}
}

// --- Mongo store ---

type fakeCollection struct {
	docs    []interface{}
	deletes int
}

func (f *fakeCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	f.deletes++
	n := len(f.docs)
	f.docs = nil
	return &mongo.DeleteResult{DeletedCount: int64(n)}, nil
}

func (f *fakeCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	// Stored in reverse so Load has to restore catalog order.
	for i := len(documents) - 1; i >= 0; i-- {
		f.docs = append(f.docs, documents[i])
	}
	return &mongo.InsertManyResult{}, nil
}

func (f *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func TestMongoStoreRoundTrip(t *testing.T) {
	coll := &fakeCollection{}
	s := newMongoStore(coll, time.Second, testLogger)
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, types.ErrCatalogNotFound) {
		t.Fatalf("empty collection: %v", err)
	}

	if err := s.Save(ctx, sampleCatalog()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, sampleCatalog()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if len(coll.docs) != 2 || coll.deletes != 2 {
		t.Errorf("docs=%d deletes=%d", len(coll.docs), coll.deletes)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Categories[0].ID != "lime-paint" || got.Categories[1].ID != "cleaners" {
		t.Errorf("order = %s, %s", got.Categories[0].ID, got.Categories[1].ID)
	}
	if got.Categories[1].Products == nil {
		t.Error("empty product list should decode as empty, not nil")
	}
	if p, _ := got.Product("lime-paint-1"); p == nil || p.URL == "" {
		t.Errorf("product = %+v", p)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close without client: %v", err)
	}
}

// --- Multi store ---

type memStore struct {
	name    string
	saved   *catalog.Catalog
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (*catalog.Catalog, error) {
	if m.saved == nil {
		return nil, &types.StorageError{Backend: m.name, Err: types.ErrCatalogNotFound}
	}
	return m.saved, nil
}

func (m *memStore) Save(ctx context.Context, c *catalog.Catalog) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = c
	return nil
}

func (m *memStore) Close() error { return nil }
func (m *memStore) Name() string { return m.name }

func TestMultiStore(t *testing.T) {
	failing := &memStore{name: "a", saveErr: errors.New("down")}
	ok := &memStore{name: "b"}
	s := NewMultiStore([]Store{failing, ok}, testLogger)
	ctx := context.Background()

	if err := s.Save(ctx, sampleCatalog()); err == nil {
		t.Error("first backend error should surface")
	}
	if ok.saved == nil {
		t.Error("later backends should still be written")
	}

	got, err := s.Load(ctx)
	if err != nil || got != ok.saved {
		t.Errorf("load should fall through to b: %v", err)
	}

	empty := NewMultiStore([]Store{&memStore{name: "x"}}, testLogger)
	if _, err := empty.Load(ctx); !errors.Is(err, types.ErrCatalogNotFound) {
		t.Errorf("expected ErrCatalogNotFound, got %v", err)
	}
}
