package chromemdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

const compress = false

// modelMarkerFile records which embedding model populated the store. Entries
// embedded with one model are useless to queries embedded with another, so a
// mismatch is worth a loud warning. Re-embedding is manual: delete the store
// directory and ingest again.
const modelMarkerFile = "embedding_model"

// StoreError marks the persistent index store as unreachable or corrupt.
// Fatal for the operation in progress, not for the process.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("index store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps a chromem-go collection as the pipeline's persistent index:
// upsert by chunk id plus k-nearest-neighbor query by embedding.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
}

// NewStore opens (or creates) the persistent database at dbPath and the named
// collection inside it. With inMemory set, nothing touches disk; used by tests.
func NewStore(dbPath, collectionName string, inMemory bool, embeddingModel string) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, &StoreError{Op: "open", Err: err}
		}
		checkModelMarker(dbPath, embeddingModel)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, &StoreError{Op: "open collection", Err: err}
	}

	return &Store{
		db:         db,
		collection: collection,
		dbPath:     dbPath,
	}, nil
}

// Upsert stores documents by id, overwriting any previous entry with the same
// id. Every document must carry its embedding already.
func (s *Store) Upsert(ctx context.Context, docs []chromem.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// Query returns up to k stored documents nearest to the given embedding,
// nearest first. An empty store yields an empty result, not an error.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]chromem.Result, error) {
	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
	})
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	return results, nil
}

// Count reports the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// checkModelMarker persists the embedding model name next to the data on first
// use and warns when a later open uses a different model.
func checkModelMarker(dbPath, embeddingModel string) {
	if embeddingModel == "" {
		return
	}
	markerPath := filepath.Join(dbPath, modelMarkerFile)
	data, err := os.ReadFile(markerPath)
	if err != nil {
		if err := os.WriteFile(markerPath, []byte(embeddingModel+"\n"), 0644); err != nil {
			log.Warn().Err(err).Str("path", markerPath).Msg("Could not record embedding model")
		}
		return
	}
	recorded := strings.TrimSpace(string(data))
	if recorded != embeddingModel {
		log.Warn().
			Str("store_model", recorded).
			Str("configured_model", embeddingModel).
			Msg("Embedding model differs from the one that populated the store; retrieval quality will degrade until documents are re-ingested")
	}
}
