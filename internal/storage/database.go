package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// collection is the subset of *mongo.Collection the store uses.
type collection interface {
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// categoryDoc is one category document; Position keeps catalog order.
type categoryDoc struct {
	Position    int                `bson:"position"`
	ID          string             `bson:"id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	URL         string             `bson:"url,omitempty"`
	Products    []*catalog.Product `bson:"products"`
	SavedAt     time.Time          `bson:"saved_at"`
}

// MongoStore mirrors the catalog into a MongoDB collection, one document per
// category.
type MongoStore struct {
	client     *mongo.Client
	collection collection
	timeout    time.Duration
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	s := newMongoStore(client.Database(cfg.Database).Collection(cfg.Collection), cfg.Timeout, logger)
	s.client = client
	return s, nil
}

func newMongoStore(coll collection, timeout time.Duration, logger *slog.Logger) *MongoStore {
	return &MongoStore{
		collection: coll,
		timeout:    timeout,
		logger:     logger.With("component", "mongo_store"),
	}
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Load(ctx context.Context) (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("find: %w", err)}
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("decode: %w", err)}
	}
	if len(docs) == 0 {
		return nil, &types.StorageError{Backend: s.Name(), Err: types.ErrCatalogNotFound}
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Position < docs[j].Position })

	c := &catalog.Catalog{Categories: make([]*catalog.Category, 0, len(docs))}
	for _, d := range docs {
		products := d.Products
		if products == nil {
			products = []*catalog.Product{}
		}
		c.Categories = append(c.Categories, &catalog.Category{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			URL:         d.URL,
			Products:    products,
		})
	}
	return c, nil
}

// Save replaces every document in the collection with the categories of c.
func (s *MongoStore) Save(ctx context.Context, c *catalog.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.collection.DeleteMany(ctx, bson.D{}); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("delete: %w", err)}
	}
	if len(c.Categories) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(c.Categories))
	for i, cat := range c.Categories {
		docs[i] = categoryDoc{
			Position:    i,
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
			URL:         cat.URL,
			Products:    cat.Products,
			SavedAt:     now,
		}
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("insert: %w", err)}
	}

	s.logger.Info("catalog stored in mongodb", "categories", len(docs), "products", c.ProductCount())
	return nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
