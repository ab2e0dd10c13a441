package snapshot

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression applied to artifact payloads.
type Compression uint8

const (
	// CompressionNone stores payloads raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, moderate ratio).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses Zstandard block compression (better ratio).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// blockHeaderSize is the prefix on every compressed payload:
// [UncompressedSize uint32][CompressedSize uint32]; CompressedSize == 0
// marks a raw (incompressible) block.
const blockHeaderSize = 8

// maxUncompressedLen bounds the size a block may claim to decompress to
// (1 GiB). The field is untrusted input; without the bound a corrupt
// header drives the allocation.
const maxUncompressedLen = 1 << 30

// compressBlock compresses data with the given algorithm. Blocks that do not
// shrink below 90% of their original size are stored raw behind the same
// header, so decompression never has to guess.
func compressBlock(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}

	var compressed []byte
	var err error
	switch compression {
	case CompressionLZ4:
		compressed, err = lz4Compress(data)
	case CompressionZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("snapshot: unsupported compression %d", compression)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

// decompressBlock reverses compressBlock.
func decompressBlock(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}
	if len(data) < blockHeaderSize {
		return nil, fmt.Errorf("snapshot: compressed block truncated (%d bytes)", len(data))
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[blockHeaderSize:]

	if uncompressedSize > maxUncompressedLen {
		return nil, fmt.Errorf("snapshot: claimed uncompressed size %d exceeds limit", uncompressedSize)
	}

	if compressedSize == 0 {
		if uint32(len(body)) != uncompressedSize {
			return nil, fmt.Errorf("snapshot: raw block size mismatch: header %d, got %d", uncompressedSize, len(body))
		}
		return body, nil
	}
	if uint32(len(body)) != compressedSize {
		return nil, fmt.Errorf("snapshot: compressed block size mismatch: header %d, got %d", compressedSize, len(body))
	}

	switch compression {
	case CompressionLZ4:
		result := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(body, result)
		if err != nil {
			return nil, fmt.Errorf("snapshot: lz4 decompress: %w", err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("snapshot: lz4 size mismatch: header %d, got %d", uncompressedSize, n)
		}
		return result, nil
	case CompressionZstd:
		dec := getZstdDecoder()
		result, err := dec.DecodeAll(body, make([]byte, 0, uncompressedSize))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd decompress: %w", err)
		}
		if uint32(len(result)) != uncompressedSize {
			return nil, fmt.Errorf("snapshot: zstd size mismatch: header %d, got %d", uncompressedSize, len(result))
		}
		return result, nil
	default:
		return nil, fmt.Errorf("snapshot: unsupported compression %d", compression)
	}
}

func lz4Compress(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	compressed := make([]byte, bound)
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible; caller stores the raw block.
		return nil, nil
	}
	return compressed[:n], nil
}
