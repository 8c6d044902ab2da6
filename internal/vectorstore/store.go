// Package vectorstore provides scoped vector persistence and similarity
// search. A scope is an isolation boundary (persistent owner or ephemeral
// session); a query in one scope never sees vectors written under another.
package vectorstore

import "context"

// Record is one embedded chunk to be stored. ID must be globally unique per
// chunk for the lifetime of the index; re-ingesting identical content mints a
// new id rather than overwriting.
type Record struct {
	ID          string
	Embedding   []float32
	Content     string
	SourceLabel string
}

// Match is one similarity-search hit, ordered by the backing index.
type Match struct {
	ID          string
	Score       float32
	Content     string
	SourceLabel string
}

// Store abstracts the vector index. Writes are not guaranteed immediately
// queryable: the backing index may exhibit a short propagation delay between
// Upsert returning and Query seeing the new records. Callers that query right
// after writing must retry on empty results.
type Store interface {
	// Upsert stores records under scope in one call.
	Upsert(ctx context.Context, scope string, records []Record) error

	// Query returns up to topK matches for the embedding within scope,
	// ordered by descending similarity score. Ordering is delegated to the
	// index and not re-sorted locally.
	Query(ctx context.Context, scope string, embedding []float32, topK int) ([]Match, error)

	// DeleteMany removes the given ids from scope. Absent ids are a no-op
	// success.
	DeleteMany(ctx context.Context, scope string, ids []string) error
}
