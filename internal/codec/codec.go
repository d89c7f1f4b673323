package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrCorruptEntry reports a payload that failed to decode or decompress.
// Callers treat the entry as absent and drop it from the owning index.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Codec serializes cache payloads and performs reversible compression for
// cold-tier storage.
type Codec struct {
	level int
}

// New creates a codec with the given gzip compression level. Levels outside
// the valid range fall back to the default level.
func New(level int) *Codec {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &Codec{level: level}
}

// Encode serializes a payload and returns the bytes plus their size.
func (c *Codec) Encode(value interface{}) ([]byte, int64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, int64(len(data)), nil
}

// Decode deserializes a payload previously produced by Encode.
func (c *Codec) Decode(data []byte) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return value, nil
}

// Compress returns the gzip-compressed form of data.
func (c *Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Corrupt input is reported as ErrCorruptEntry.
func (c *Codec) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return out, nil
}

// Checksum returns the hex-encoded SHA-256 of data, used to verify payloads
// read back from disk.
func Checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
