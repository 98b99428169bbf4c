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

package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - SetID must not be empty
//   - DrugName must not be empty
//
// NOT validated (filled in by later stages):
//   - Slug (derived from DrugName when missing)
//   - Label sections (any may be absent)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.SetID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptySetID)
	}

	if strings.TrimSpace(doc.DrugName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDrugName)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - DocumentID must not be empty
//   - Text must not be empty
//   - Index must not be negative
//
// NOT validated:
//   - Vector (empty until the indexer embeds it)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySetID)
	}

	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeIndex)
	}

	return nil
}

// FormatEffectiveTime converts a YYYYMMDD effective time into YYYY-MM-DD.
// Any other shape yields an empty string.
func FormatEffectiveTime(raw string) string {
	if len(raw) != 8 {
		return ""
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:]
}

// MaxVectorDimension bounds the length of a decoded embedding vector.
const MaxVectorDimension = 1 << 16

// ValidateVectorLength rejects vector lengths read from encoded chunks that
// exceed MaxVectorDimension.
func ValidateVectorLength(length int) error {
	if length > MaxVectorDimension {
		return fmt.Errorf("%w: %d", ErrVectorTooLong, length)
	}
	return nil
}
