// Package store persists a vector index and its parallel chunk metadata as
// a single binary artifact.
//
// Layout (all integers little-endian):
//
//	header:  magic u32 | version u32 | count u32 | dim u32 | checksum u32
//	body:    count*dim float32 vector block, then count chunk records
//	record:  textLen u32 | text | sourceLen u32 | source | page u32
//
// The checksum is CRC-32 (IEEE) over the body. Floats are stored as their
// IEEE-754 bit patterns, so a save/load cycle is bit-exact. Writers produce
// the artifact in a temporary file and rename it into place, so readers
// never observe a partial write.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"simsearch/internal/domain"
	"simsearch/internal/index"
)

const (
	magicNumber = 0x53494D31 // "SIM1"
	version     = 1
	headerSize  = 20
)

var (
	// ErrNotFound reports that no artifact exists at the given path.
	ErrNotFound = errors.New("store: index artifact not found")
	// ErrCorrupt reports an artifact that cannot be parsed or whose vector
	// and chunk counts disagree.
	ErrCorrupt = errors.New("store: index artifact corrupt")
)

// Save serializes idx and chunks to path atomically. The index length must
// equal the chunk count; ids in the index address chunks by position.
func Save(idx *index.Flat, chunks []domain.Chunk, path string) error {
	if idx.Len() != len(chunks) {
		return fmt.Errorf("store: %d vectors but %d chunks", idx.Len(), len(chunks))
	}
	body := encodeBody(idx, chunks)

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], magicNumber)
	binary.LittleEndian.PutUint32(header[4:], version)
	binary.LittleEndian.PutUint32(header[8:], uint32(idx.Len()))
	binary.LittleEndian.PutUint32(header[12:], uint32(idx.Dim()))
	binary.LittleEndian.PutUint32(header[16:], crc32.ChecksumIEEE(body))

	return writeAtomic(path, header, body)
}

// Load reads the artifact at path and reconstructs the index and chunk
// array. It fails with ErrNotFound if the path does not exist and
// ErrCorrupt if the artifact cannot be parsed.
func Load(path string) (*index.Flat, []domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, err
	}
	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrCorrupt, len(data))
	}
	if m := binary.LittleEndian.Uint32(data[0:]); m != magicNumber {
		return nil, nil, fmt.Errorf("%w: bad magic 0x%08X", ErrCorrupt, m)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != version {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	count := int(binary.LittleEndian.Uint32(data[8:]))
	dim := int(binary.LittleEndian.Uint32(data[12:]))
	sum := binary.LittleEndian.Uint32(data[16:])

	body := data[headerSize:]
	if got := crc32.ChecksumIEEE(body); got != sum {
		return nil, nil, fmt.Errorf("%w: checksum 0x%08X, want 0x%08X", ErrCorrupt, got, sum)
	}
	if count > 0 && dim == 0 {
		return nil, nil, fmt.Errorf("%w: %d vectors with dimension 0", ErrCorrupt, count)
	}

	vectors, rest, err := decodeVectors(body, count, dim)
	if err != nil {
		return nil, nil, err
	}
	chunks, rest, err := decodeChunks(rest, count)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(rest))
	}

	idx, err := index.Build(vectors)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return idx, chunks, nil
}

func encodeBody(idx *index.Flat, chunks []domain.Chunk) []byte {
	size := idx.Len() * idx.Dim() * 4
	for _, c := range chunks {
		size += 12 + len(c.Text) + len(c.Source)
	}
	body := make([]byte, 0, size)
	for i := 0; i < idx.Len(); i++ {
		for _, v := range idx.Vector(i) {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(v))
		}
	}
	for _, c := range chunks {
		body = appendString(body, c.Text)
		body = appendString(body, c.Source)
		body = binary.LittleEndian.AppendUint32(body, uint32(c.Page))
	}
	return body
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func decodeVectors(body []byte, count, dim int) ([][]float32, []byte, error) {
	need := count * dim * 4
	if len(body) < need {
		return nil, nil, fmt.Errorf("%w: vector block truncated (%d of %d bytes)", ErrCorrupt, len(body), need)
	}
	vectors := make([][]float32, count)
	off := 0
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
			off += 4
		}
		vectors[i] = vec
	}
	return vectors, body[need:], nil
}

func decodeChunks(body []byte, count int) ([]domain.Chunk, []byte, error) {
	chunks := make([]domain.Chunk, 0, count)
	for i := 0; i < count; i++ {
		text, rest, err := readString(body)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: chunk %d text: %v", ErrCorrupt, i, err)
		}
		source, rest, err := readString(rest)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: chunk %d source: %v", ErrCorrupt, i, err)
		}
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("%w: chunk %d page truncated", ErrCorrupt, i)
		}
		page := binary.LittleEndian.Uint32(rest)
		chunks = append(chunks, domain.Chunk{Text: text, Source: source, Page: int(page)})
		body = rest[4:]
	}
	return chunks, body, nil
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, errors.New("length prefix truncated")
	}
	n := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if len(b) < n {
		return "", nil, fmt.Errorf("want %d bytes, have %d", n, len(b))
	}
	return string(b[:n]), b[n:], nil
}

// writeAtomic writes header+body to a temporary file in path's directory,
// syncs it, and renames it over path.
func writeAtomic(path string, header, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(header); err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		tmp = nil
		_ = os.Remove(name)
		return err
	}
	tmp = nil
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
