// Package memory implements the feedback memory: reviewer feedback is
// embedded, persisted together with the draft it was given on, and later
// retrieved by semantic similarity to steer new drafts.
//
//	AddFeedback(id, feedback, draft)
//	    embed(feedback) ──▶ VectorStore.Upsert(Record)
//
//	RetrieveSimilar(query, n)
//	    embed(query) ──▶ VectorStore.Nearest(vector, n) ──▶ []Match
//
// Only the feedback text is embedded. Records are keyed by message id;
// writing feedback for an id that already has a record replaces it.
//
// Similarity is cosine similarity computed in process. Every backend
// (sqlite, redis, postgres, in-memory) stores the raw vector and the name of
// the embedding model, and Nearest skips records produced by a different
// model.
package memory
