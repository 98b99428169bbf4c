// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage provides the storage abstraction layer for druglabel.
//
// This package defines the repository and store interfaces that decouple the
// pipeline from its backends. Several backends implement them:
//
//   - storage/badger: documents by stage, chunk vectors, the search index,
//     rankings and checkpoints in one embedded BadgerDB
//   - storage/chromem: chunk vectors in a chromem-go collection
//   - storage/postgres: the relational drug catalogue and pgvector chunks
//   - storage/artifacts: JSON batch files written after each stage
//
// # Constructors
//
// Backend constructors return concrete types that satisfy the interfaces
// here, so callers can reach backend-specific operations such as Export:
//
//	store, err := chromem.Open(path) // *chromem.Store is a storage.VectorStore
//
// # Architecture
//
//   - DocumentRepository: documents per pipeline stage and enriched documents
//   - VectorStore: chunk vectors with metadata filters
//   - SearchIndex: flattened search documents and the tag index
//   - RelationalStore: labelers and drugs, plus similarity rankings
//   - RankingWriter / RankingReader: similarity ranking persistence
//   - CheckpointRepository: per-stage progress
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
