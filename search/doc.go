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


// Package search answers free-text and tag queries over indexed drug labels.
//
// Semantic queries embed the query text, pull the nearest chunks from the
// vector store, and group them by owning document. A document scores by its
// best chunk, boosted when a chunk contains every non-stop-word of the query.
// Tag queries resolve through the search index.
package search
