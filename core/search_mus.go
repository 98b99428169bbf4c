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
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// SearchDocumentMUS serializes search documents. It is maintained by hand
// rather than generated because map entries are written in sorted key order
// so equal documents encode to equal bytes.
var SearchDocumentMUS = searchDocumentMUS{}

type searchDocumentMUS struct{}

func (searchDocumentMUS) Marshal(v SearchDocument, bs []byte) (n int) {
	n = ord.String.Marshal(v.SetID, bs)
	n += ord.String.Marshal(v.DrugName, bs[n:])
	n += ord.String.Marshal(v.Slug, bs[n:])
	keys := sortedKeys(v.Fields)
	n += varint.Int.Marshal(len(keys), bs[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v.Fields[k], bs[n:])
	}
	kinds := sortedKinds(v.Tags)
	n += varint.Int.Marshal(len(kinds), bs[n:])
	for _, kind := range kinds {
		n += ord.String.Marshal(string(kind), bs[n:])
		n += marshalStrings(v.Tags[kind], bs[n:])
	}
	return n
}

func (searchDocumentMUS) Unmarshal(bs []byte) (v SearchDocument, n int, err error) {
	var n1, count int
	if v.SetID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.DrugName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Slug, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count < 0 {
		err = errNegativeLength
		return
	}
	if count > len(bs[n:]) {
		err = errLengthOverflow
		return
	}
	v.Fields = make(map[string]string, count)
	for i := 0; i < count; i++ {
		var key, value string
		if key, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		if value, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		v.Fields[key] = value
	}
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count < 0 {
		err = errNegativeLength
		return
	}
	if count > len(bs[n:]) {
		err = errLengthOverflow
		return
	}
	v.Tags = make(TagSet, count)
	for i := 0; i < count; i++ {
		var (
			kind string
			tags []string
		)
		if kind, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		if tags, n1, err = unmarshalStrings(bs[n:]); err != nil {
			return
		}
		n += n1
		v.Tags[TagKind(kind)] = tags
	}
	return
}

func (searchDocumentMUS) Size(v SearchDocument) (size int) {
	size = ord.String.Size(v.SetID)
	size += ord.String.Size(v.DrugName)
	size += ord.String.Size(v.Slug)
	size += varint.Int.Size(len(v.Fields))
	for k, value := range v.Fields {
		size += ord.String.Size(k) + ord.String.Size(value)
	}
	size += varint.Int.Size(len(v.Tags))
	for kind, tags := range v.Tags {
		size += ord.String.Size(string(kind)) + stringsSize(tags)
	}
	return size
}

func marshalStrings(values []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(values), bs)
	for _, s := range values {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (values []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	// Every string carries at least a one-byte length prefix.
	if length > len(bs[n:]) {
		return nil, n, errLengthOverflow
	}
	values = make([]string, length)
	for i := range values {
		var n1 int
		if values[i], n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += n1
	}
	return values, n, nil
}

func stringsSize(values []string) int {
	size := varint.Int.Size(len(values))
	for _, s := range values {
		size += ord.String.Size(s)
	}
	return size
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedKinds(t TagSet) []TagKind {
	kinds := make([]TagKind, 0, len(t))
	for k := range t {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
