package format

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the frame header of a zstd stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// IsZstd reports whether data starts with a zstd frame.
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Compress wraps w in a zstd encoder. Close the returned writer to flush the
// frame; it does not close w.
func Compress(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return enc, nil
}

// Decompress returns data unchanged unless it is a zstd stream.
func Decompress(data []byte) ([]byte, error) {
	if !IsZstd(data) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress zstd: %w", err)
	}
	return out, nil
}
