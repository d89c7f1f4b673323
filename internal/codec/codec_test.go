package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestCodec_EncodeDecode(t *testing.T) {
	c := New(gzip.DefaultCompression)

	tests := []struct {
		name  string
		value interface{}
	}{
		{"string", "hello world"},
		{"map", map[string]interface{}{"name": "Ana", "age": float64(30)}},
		{"slice", []interface{}{"a", "b", float64(3)}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, size, err := c.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if size != int64(len(data)) {
				t.Errorf("size %d does not match encoded length %d", size, len(data))
			}

			got, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			switch want := tt.value.(type) {
			case map[string]interface{}:
				gotMap, ok := got.(map[string]interface{})
				if !ok {
					t.Fatalf("expected map, got %T", got)
				}
				for k, v := range want {
					if gotMap[k] != v {
						t.Errorf("key %q: got %v, want %v", k, gotMap[k], v)
					}
				}
			case []interface{}:
				gotSlice, ok := got.([]interface{})
				if !ok || len(gotSlice) != len(want) {
					t.Fatalf("expected slice of %d, got %v", len(want), got)
				}
			default:
				if got != tt.value {
					t.Errorf("got %v, want %v", got, tt.value)
				}
			}
		})
	}
}

func TestCodec_DecodeCorrupt(t *testing.T) {
	c := New(gzip.DefaultCompression)

	_, err := c.Decode([]byte("{not json"))
	if !errors.Is(err, ErrCorruptEntry) {
		t.Errorf("expected ErrCorruptEntry, got %v", err)
	}
}

func TestCodec_CompressRoundTrip(t *testing.T) {
	c := New(gzip.DefaultCompression)
	original := []byte(strings.Repeat("compressible payload ", 500))

	compressed, err := c.Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Errorf("compressed size %d not smaller than original %d", len(compressed), len(original))
	}

	restored, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(restored, original) {
		t.Error("decompressed data does not match original")
	}
}

func TestCodec_DecompressCorrupt(t *testing.T) {
	c := New(gzip.DefaultCompression)

	_, err := c.Decompress([]byte("definitely not gzip"))
	if !errors.Is(err, ErrCorruptEntry) {
		t.Errorf("expected ErrCorruptEntry, got %v", err)
	}
}

func TestCodec_InvalidLevelFallsBack(t *testing.T) {
	c := New(42)
	data, err := c.Compress([]byte("payload"))
	if err != nil {
		t.Fatalf("Compress with fallback level failed: %v", err)
	}
	if _, err := c.Decompress(data); err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("payload"))
	b := Checksum([]byte("payload"))
	if a != b {
		t.Error("checksum not deterministic")
	}
	if a == Checksum([]byte("other")) {
		t.Error("different payloads produced the same checksum")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
