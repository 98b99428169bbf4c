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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptySetID indicates the SetID field is empty.
	ErrEmptySetID = errors.New("set id cannot be empty")

	// ErrEmptyDrugName indicates the DrugName field is empty.
	ErrEmptyDrugName = errors.New("drug name cannot be empty")

	// ErrEmptyContent indicates a chunk's Text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNegativeIndex indicates a chunk index below zero.
	ErrNegativeIndex = errors.New("chunk index cannot be negative")

	// ErrUnknownSection indicates a section key outside the label schema.
	ErrUnknownSection = errors.New("unknown label section")
)

// Serialization errors
var (
	// ErrVectorTooLong indicates an encoded vector longer than MaxVectorDimension.
	ErrVectorTooLong = errors.New("vector exceeds maximum dimension")

	errNegativeLength = errors.New("negative length")
	errLengthOverflow = errors.New("length exceeds remaining input")
)
