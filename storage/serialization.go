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


package storage

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/groundwork/core"
)

// Chunk wire layout, in order:
//
//	id (varint) | text (string) | inserted_at unix micros (varint)
//	| metadata count (varint) | (key, value)* sorted by key
//	| vector length (varint) | float32 bits (varint)*

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalKnowledgeChunk serializes a KnowledgeChunk to bytes.
// Metadata keys are written in sorted order so equal chunks encode identically.
func MarshalKnowledgeChunk(chunk *core.KnowledgeChunk) []byte {
	keys := sortedKeys(chunk.Metadata)
	inserted := chunk.InsertedAt.UnixMicro()

	size := varint.Uint64.Size(uint64(chunk.Id)) +
		ord.String.Size(chunk.Text) +
		varint.Int64.Size(inserted) +
		varint.Uint64.Size(uint64(len(keys)))
	for _, k := range keys {
		size += ord.String.Size(k) + ord.String.Size(chunk.Metadata[k])
	}
	size += varint.Uint64.Size(uint64(len(chunk.Vector)))
	for _, f := range chunk.Vector {
		size += varint.Uint32.Size(math.Float32bits(f))
	}

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(chunk.Id), buf)
	n += ord.String.Marshal(chunk.Text, buf[n:])
	n += varint.Int64.Marshal(inserted, buf[n:])
	n += varint.Uint64.Marshal(uint64(len(keys)), buf[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, buf[n:])
		n += ord.String.Marshal(chunk.Metadata[k], buf[n:])
	}
	n += varint.Uint64.Marshal(uint64(len(chunk.Vector)), buf[n:])
	for _, f := range chunk.Vector {
		n += varint.Uint32.Marshal(math.Float32bits(f), buf[n:])
	}
	return buf[:n]
}

// UnmarshalKnowledgeChunk deserializes a KnowledgeChunk from bytes.
func UnmarshalKnowledgeChunk(data []byte) (*core.KnowledgeChunk, error) {
	r := chunkReader{data: data}
	chunk := &core.KnowledgeChunk{}

	chunk.Id = core.ID(r.uint64())
	chunk.Text = r.string()
	chunk.InsertedAt = time.UnixMicro(r.int64()).UTC()

	metaCount := r.length()
	if metaCount > 0 {
		chunk.Metadata = make(map[string]string, metaCount)
		for i := 0; i < metaCount && r.err == nil; i++ {
			k := r.string()
			chunk.Metadata[k] = r.string()
		}
	}

	vecLen := r.length()
	if vecLen > 0 {
		chunk.Vector = make([]float32, vecLen)
		for i := 0; i < vecLen && r.err == nil; i++ {
			chunk.Vector[i] = math.Float32frombits(r.uint32())
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	return chunk, nil
}

// chunkReader decodes sequential mus fields, latching the first error.
type chunkReader struct {
	data []byte
	pos  int
	err  error
}

func (r *chunkReader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (r *chunkReader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.pos:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.pos += n
	return v
}

func (r *chunkReader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint32.Unmarshal(r.data[r.pos:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.pos += n
	return v
}

func (r *chunkReader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.data[r.pos:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.pos += n
	return v
}

func (r *chunkReader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.pos:])
	if err != nil {
		r.fail(err)
		return ""
	}
	r.pos += n
	return v
}

// length reads a collection length and rejects values that cannot fit in the
// remaining input (every element occupies at least one byte).
func (r *chunkReader) length() int {
	v := r.uint64()
	if r.err != nil {
		return 0
	}
	if v > uint64(len(r.data)-r.pos) {
		r.fail(ErrTruncatedData)
		return 0
	}
	return int(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
