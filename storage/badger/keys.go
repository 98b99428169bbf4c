package badger

import (
	"encoding/binary"
	"strings"

	"github.com/poiesic/druglabel/core"
)

// Key prefixes for different data types
const (
	documentPrefix   = "doc"
	enrichedPrefix   = "enr"
	chunkPrefix      = "chk"
	searchDocPrefix  = "sdoc"
	tagIndexPrefix   = "tag"
	rankingPrefix    = "rank"
	checkpointSuffix = "chkpt"
	vectorDimKey     = "meta:vecdim"
)

// makeDocumentKey generates a key for a document of a stage.
// Format: doc:stage:setID
func makeDocumentKey(stage core.Stage, setID string) []byte {
	return []byte(documentPrefix + ":" + string(stage) + ":" + setID)
}

func makeDocumentStagePrefix(stage core.Stage) []byte {
	return []byte(documentPrefix + ":" + string(stage) + ":")
}

// makeEnrichedKey generates a key for an enriched document.
func makeEnrichedKey(setID string) []byte {
	return []byte(enrichedPrefix + ":" + setID)
}

// makeChunkKey generates a composite key for a chunk.
// Format: chk:documentID:index, index in BigEndian so chunks sort by index.
func makeChunkKey(documentID string, index int) []byte {
	prefix := makeChunkDocumentPrefix(documentID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makeChunkDocumentPrefix generates the partial key of a document's chunks.
func makeChunkDocumentPrefix(documentID string) []byte {
	return []byte(chunkPrefix + ":" + documentID + ":")
}

// makeSearchDocKey generates a key for a search document.
func makeSearchDocKey(setID string) []byte {
	return []byte(searchDocPrefix + ":" + setID)
}

// makeTagKey generates a composite key for the tag index.
// Format: tag:kind:lowercasedTag\x00setID
func makeTagKey(kind core.TagKind, tag, setID string) []byte {
	return append(makeTagPrefix(kind, tag), setID...)
}

// makeTagPrefix generates the partial key of one tag's postings.
func makeTagPrefix(kind core.TagKind, tag string) []byte {
	return []byte(tagIndexPrefix + ":" + string(kind) + ":" + strings.ToLower(strings.TrimSpace(tag)) + "\x00")
}

// makeRankingKey generates a key for a document's similarity ranking.
func makeRankingKey(documentID string) []byte {
	return []byte(rankingPrefix + ":" + documentID)
}

// makeCheckpointKey generates a key for stage checkpoints.
func makeCheckpointKey(stage core.Stage) []byte {
	return []byte(string(stage) + ":" + checkpointSuffix)
}
