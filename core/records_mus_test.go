package core

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mus-format/mus-go/varint"
)

func TestChunkMUS(t *testing.T) {
	chunk := Chunk{
		ID:           ChunkID("set-1", 2),
		DocumentID:   "set-1",
		DocumentName: "Lisinopril",
		Slug:         "lisinopril",
		Index:        2,
		Text:         "Take once daily.",
		TokenCount:   5,
		Vector:       []float32{0.25, -1, 3.5},
	}

	bs := make([]byte, ChunkMUS.Size(chunk))
	n := ChunkMUS.Marshal(chunk, bs)
	if n != len(bs) {
		t.Fatalf("Marshal() wrote %d bytes, Size() = %d", n, len(bs))
	}

	got, read, err := ChunkMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if read != n {
		t.Errorf("Unmarshal() read %d bytes, want %d", read, n)
	}
	if !reflect.DeepEqual(got, chunk) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, chunk)
	}
}

func TestChunkMUS_TruncatedInput(t *testing.T) {
	chunk := Chunk{DocumentID: "set-1", Text: "x", Vector: []float32{1, 2}}
	bs := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, bs)

	if _, _, err := ChunkMUS.Unmarshal(bs[:len(bs)-3]); err == nil {
		t.Errorf("Unmarshal() of truncated input should fail")
	}
}

func TestChunkMUS_OversizedVectorLength(t *testing.T) {
	chunk := Chunk{DocumentID: "set-1", Text: "x"}
	bs := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, bs)

	// An empty vector encodes as a single zero length byte at the end.
	huge := 1 << 30
	prefix := make([]byte, varint.Int.Size(huge))
	varint.Int.Marshal(huge, prefix)
	corrupt := append(bs[:len(bs)-1:len(bs)-1], prefix...)

	_, _, err := ChunkMUS.Unmarshal(corrupt)
	if !errors.Is(err, ErrVectorTooLong) {
		t.Errorf("Unmarshal() error = %v, want %v", err, ErrVectorTooLong)
	}
}

func TestValidateVectorLength(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"empty", 0, false},
		{"typical embedding", 1536, false},
		{"at limit", MaxVectorDimension, false},
		{"over limit", MaxVectorDimension + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVectorLength(tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVectorLength(%d) error = %v, wantErr %v", tt.length, err, tt.wantErr)
			}
		})
	}
}

func TestCheckpointMUS(t *testing.T) {
	cp := Checkpoint{
		Stage:          StageIndexed,
		LastDocumentID: "set-9",
		Processed:      42,
		UpdatedAt:      time.Date(2025, 3, 1, 12, 30, 0, 123000, time.UTC),
	}
	bs := make([]byte, CheckpointMUS.Size(cp))
	CheckpointMUS.Marshal(cp, bs)

	got, _, err := CheckpointMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.UpdatedAt.Equal(cp.UpdatedAt) || got.Stage != cp.Stage || got.Processed != 42 {
		t.Errorf("Unmarshal() = %+v, want %+v", got, cp)
	}
}

func TestSearchDocumentMUS_Deterministic(t *testing.T) {
	doc := SearchDocument{
		SetID:    "set-1",
		DrugName: "Lisinopril",
		Slug:     "lisinopril",
		Fields:   map[string]string{"description": "ACE inhibitor", "dosing": "10 mg", "warnings": "Angioedema"},
		Tags:     TagSet{TagCondition: {"Hypertension"}, TagSubstance: {"Lisinopril"}},
	}

	first := make([]byte, SearchDocumentMUS.Size(doc))
	SearchDocumentMUS.Marshal(doc, first)
	second := make([]byte, SearchDocumentMUS.Size(doc))
	SearchDocumentMUS.Marshal(doc, second)
	if string(first) != string(second) {
		t.Errorf("Marshal() is not deterministic")
	}

	got, _, err := SearchDocumentMUS.Unmarshal(first)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, doc)
	}
}

func TestSearchDocumentMUS_OversizedTagCount(t *testing.T) {
	doc := SearchDocument{SetID: "set-1", DrugName: "Lisinopril"}
	bs := make([]byte, SearchDocumentMUS.Size(doc))
	SearchDocumentMUS.Marshal(doc, bs)

	// The empty tag set is the final zero count byte.
	huge := 1 << 30
	prefix := make([]byte, varint.Int.Size(huge))
	varint.Int.Marshal(huge, prefix)
	corrupt := append(bs[:len(bs)-1:len(bs)-1], prefix...)

	if _, _, err := SearchDocumentMUS.Unmarshal(corrupt); err == nil {
		t.Errorf("Unmarshal() with oversized tag count should fail")
	}
}
