// Package enrich produces enriched drug-label documents.
//
// Enrichment runs in two stages per document. The first stage rewrites the
// clinical sections into a restricted HTML vocabulary. The second stage works
// on the rewritten text and produces summaries and tag sets. Each stage fans
// its transforms out concurrently and waits for all of them before the next
// stage starts. Every external call is admitted by a gateway.Gateway.
//
// A failed transform never fails the document: rewrites and summaries fall
// back to a placeholder text, tag sets fall back to an empty list, and the
// failure is recorded in EnrichedDocument.Errors.
package enrich
