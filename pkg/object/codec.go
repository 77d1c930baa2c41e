package object

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/snap/pkg/fault"
)

// Compression names the transform applied to object bytes before they are
// hashed and written. Ids are computed over the transformed bytes, so a
// repository must never change its compression after the first write.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// DefaultCompression is used when a repository does not configure one.
const DefaultCompression = CompressionGzip

// ParseCompression validates a configured compression name. The empty
// string selects DefaultCompression.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "":
		return DefaultCompression, nil
	case CompressionNone, CompressionGzip, CompressionZstd:
		return Compression(name), nil
	}
	return "", fault.InvalidInput("unknown compression %q", name)
}

func (c Compression) encode(data []byte) ([]byte, error) {
	switch c {
	case CompressionGzip:
		return compressGzip(data)
	case CompressionZstd:
		return compressZstd(data)
	default:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
}

func (c Compression) decode(stored []byte) ([]byte, error) {
	switch c {
	case CompressionGzip:
		return decompressGzip(stored)
	case CompressionZstd:
		return decompressZstd(stored)
	default:
		return stored, nil
	}
}

// compressGzip writes a header with no name and a zero mtime so equal input
// always yields equal output.
func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func compressZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
