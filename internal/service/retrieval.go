package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scaleworks/docquery/internal/telemetry"
	"github.com/scaleworks/docquery/internal/vectorstore"
)

const (
	// DefaultTopK is the number of chunks retrieved for a question
	DefaultTopK = 5
	// DefaultEmptyRetryDelay is the wait between retries when a query right
	// after an upsert returns nothing, absorbing the store's write-to-read
	// propagation delay.
	DefaultEmptyRetryDelay = 2 * time.Second
	// DefaultEmptyRetryAttempts bounds those retries
	DefaultEmptyRetryAttempts = 5
	// defaultEmbedConcurrency bounds parallel chunk embedding per ingest
	defaultEmbedConcurrency = 4
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// IngestResult reports what one ingest actually stored. FailedChunks counts
// chunks skipped because their embedding failed; they are not retried.
type IngestResult struct {
	VectorIDs    []string
	FailedChunks int
}

// RetrievalConfig tunes the coordinator.
type RetrievalConfig struct {
	Chunking         ChunkConfig
	TopK             int
	EmptyRetryDelay  time.Duration
	EmptyRetryLimit  int
	EmbedConcurrency int
}

// DefaultRetrievalConfig returns the default coordinator configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Chunking:         DefaultChunkConfig(),
		TopK:             DefaultTopK,
		EmptyRetryDelay:  DefaultEmptyRetryDelay,
		EmptyRetryLimit:  DefaultEmptyRetryAttempts,
		EmbedConcurrency: defaultEmbedConcurrency,
	}
}

// RetrievalCoordinator composes the chunk splitter, embedding client, and
// vector store into the ingest and retrieve halves of the pipeline.
type RetrievalCoordinator struct {
	embedder EmbeddingClient
	store    vectorstore.Store
	cfg      RetrievalConfig
}

// NewRetrievalCoordinator creates a coordinator with default configuration.
func NewRetrievalCoordinator(embedder EmbeddingClient, store vectorstore.Store) *RetrievalCoordinator {
	return NewRetrievalCoordinatorWithConfig(embedder, store, DefaultRetrievalConfig())
}

// NewRetrievalCoordinatorWithConfig creates a coordinator with explicit configuration.
func NewRetrievalCoordinatorWithConfig(embedder EmbeddingClient, store vectorstore.Store, cfg RetrievalConfig) *RetrievalCoordinator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.EmptyRetryDelay <= 0 {
		cfg.EmptyRetryDelay = DefaultEmptyRetryDelay
	}
	if cfg.EmptyRetryLimit <= 0 {
		cfg.EmptyRetryLimit = DefaultEmptyRetryAttempts
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = defaultEmbedConcurrency
	}
	return &RetrievalCoordinator{embedder: embedder, store: store, cfg: cfg}
}

// Ingest splits rawText, embeds each chunk independently, and upserts every
// successfully embedded record under scope in one call. A chunk whose
// embedding fails is skipped and counted, never fatal to the batch. Each
// record gets a fresh globally unique id; re-ingesting identical content
// stores new vectors rather than overwriting.
func (c *RetrievalCoordinator) Ingest(ctx context.Context, scope, sourceLabel, rawText string) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.ingest")
	defer span.End()

	chunks := SplitText(rawText, c.cfg.Chunking)
	if len(chunks) == 0 {
		return &IngestResult{}, nil
	}

	records := make([]*vectorstore.Record, len(chunks))
	var failed int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.EmbedConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			embedding, err := c.embedder.GenerateEmbedding(gctx, chunk)
			if err != nil {
				log.Printf("ingest: skipping chunk %d of %s: %v", i, sourceLabel, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			records[i] = &vectorstore.Record{
				ID:          chunkVectorID(sourceLabel, i),
				Embedding:   embedding,
				Content:     chunk,
				SourceLabel: sourceLabel,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stored := make([]vectorstore.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			stored = append(stored, *r)
		}
	}

	if len(stored) == 0 {
		log.Printf("ingest: no valid embeddings to upload for %s", sourceLabel)
		return &IngestResult{FailedChunks: failed}, nil
	}

	if err := c.store.Upsert(ctx, scope, stored); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	ids := make([]string, len(stored))
	for i, r := range stored {
		ids[i] = r.ID
	}

	log.Printf("ingest: uploaded %d/%d chunks for %s", len(stored), len(chunks), sourceLabel)
	return &IngestResult{VectorIDs: ids, FailedChunks: failed}, nil
}

// Retrieve embeds queryText and returns the topK most similar chunk texts in
// store order. A query-embedding failure is fatal: there is nothing to
// retrieve without a query vector. An empty result is retried on a fixed
// delay up to the configured attempt ceiling before concluding there is no
// relevant content; the exhausted case returns an empty slice, not an error.
func (c *RetrievalCoordinator) Retrieve(ctx context.Context, scope, queryText string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.retrieve")
	defer span.End()

	embedding, err := c.embedder.GenerateEmbedding(ctx, queryText)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	for attempt := 1; ; attempt++ {
		matches, err := c.store.Query(ctx, scope, embedding, c.cfg.TopK)
		if err != nil {
			span.SetError(err)
			return nil, err
		}

		if len(matches) > 0 {
			texts := make([]string, len(matches))
			for i, m := range matches {
				texts[i] = m.Content
			}
			return texts, nil
		}

		if attempt >= c.cfg.EmptyRetryLimit {
			return []string{}, nil
		}

		timer := time.NewTimer(c.cfg.EmptyRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// AssembleContext joins retrieved chunk texts in store-returned order,
// separated by blank lines. No re-ranking or deduplication.
func AssembleContext(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

func chunkVectorID(sourceLabel string, index int) string {
	return fmt.Sprintf("%s-chunk-%d-%s", sourceLabel, index, uuid.NewString()[:8])
}
