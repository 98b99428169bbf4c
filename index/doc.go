// Package index chunks enriched drug-label documents, embeds the chunks, and
// writes them to a vector store.
//
// Chunk texts are embedded in batches with retry and exponential backoff.
// Vectors are normalized to unit length so stores can rank by dot product.
// Re-indexing a document first removes its previous chunks, so a document
// that now yields fewer chunks leaves no stale entries behind.
package index
