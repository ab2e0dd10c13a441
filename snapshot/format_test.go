package snapshot

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragmem/memvec/codec"
	"github.com/ragmem/memvec/metadata"
)

func TestIndexArtifact(t *testing.T) {
	id := uuid.New()
	snap := &Index{
		SnapshotID: id,
		Dimension:  3,
		Vectors: [][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.5, 0.25, 0.125},
		},
	}

	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeIndex(&buf, snap, compression))

			decoded, err := DecodeIndex(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, id, decoded.SnapshotID)
			assert.Equal(t, 3, decoded.Dimension)
			assert.Equal(t, snap.Vectors, decoded.Vectors)
		})
	}

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeIndex(&buf, &Index{SnapshotID: id, Dimension: 3}, CompressionZstd))

		decoded, err := DecodeIndex(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Empty(t, decoded.Vectors)
	})
}

func TestMetadataArtifact(t *testing.T) {
	id := uuid.New()
	snap := &Metadata{
		SnapshotID: id,
		Documents: []metadata.Document{
			{"text": "first", "priority": float64(1)},
			{"text": "second"},
			nil,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeMetadata(&buf, snap, codec.Default, CompressionZstd))

	decoded, err := DecodeMetadata(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, id, decoded.SnapshotID)
	assert.Equal(t, codec.Default.Name(), decoded.CodecName)
	require.Len(t, decoded.Documents, 3)
	assert.Equal(t, "first", decoded.Documents[0]["text"])
	assert.Equal(t, float64(1), decoded.Documents[0]["priority"])
}

func TestDecodeRejectsCorruption(t *testing.T) {
	id := uuid.New()

	encode := func(t *testing.T) []byte {
		var buf bytes.Buffer
		require.NoError(t, EncodeIndex(&buf, &Index{
			SnapshotID: id,
			Dimension:  2,
			Vectors:    [][]float32{{1, 0}, {0, 1}},
		}, CompressionNone))
		return buf.Bytes()
	}

	t.Run("BadMagic", func(t *testing.T) {
		data := encode(t)
		data[0] = 'X'
		_, err := DecodeIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("WrongArtifactType", func(t *testing.T) {
		data := encode(t)
		_, err := DecodeMetadata(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		data := encode(t)
		data[4] = 0xff
		_, err := DecodeIndex(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("FlippedPayloadByte", func(t *testing.T) {
		data := encode(t)
		data[len(data)-8] ^= 0xff
		_, err := DecodeIndex(bytes.NewReader(data))
		var checksumErr *ChecksumMismatchError
		assert.ErrorAs(t, err, &checksumErr)
	})

	t.Run("Truncated", func(t *testing.T) {
		data := encode(t)
		_, err := DecodeIndex(bytes.NewReader(data[:len(data)-5]))
		assert.Error(t, err)
	})

	// Header field offsets: magic 0, version 4, compression 6, id 7,
	// dimension 23, count 27. The CRC covers only the payload, so header
	// corruption leaves the checksum valid and must be caught by the
	// field validation itself.

	t.Run("ZeroDimensionHugeCount", func(t *testing.T) {
		data := encode(t)
		binary.LittleEndian.PutUint32(data[23:], 0)
		binary.LittleEndian.PutUint64(data[27:], 1<<60)
		_, err := DecodeIndex(bytes.NewReader(data))
		assert.Error(t, err)
	})

	t.Run("InflatedCount", func(t *testing.T) {
		data := encode(t)
		binary.LittleEndian.PutUint64(data[27:], 1<<40)
		_, err := DecodeIndex(bytes.NewReader(data))
		assert.Error(t, err)
	})

	t.Run("CountPayloadDisagreement", func(t *testing.T) {
		data := encode(t)
		binary.LittleEndian.PutUint64(data[27:], 3)
		_, err := DecodeIndex(bytes.NewReader(data))
		assert.Error(t, err)
	})
}

func TestDecompressBlockRejectsInflatedHeader(t *testing.T) {
	// A 12-byte block claiming to decompress to 4 GiB must fail up front,
	// not allocate.
	block := make([]byte, blockHeaderSize+4)
	binary.LittleEndian.PutUint32(block[0:], math.MaxUint32)
	binary.LittleEndian.PutUint32(block[4:], 4)

	for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
		_, err := decompressBlock(block, compression)
		assert.Error(t, err, compression.String())
	}
}

func TestCompressBlock(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		data := bytes.Repeat([]byte("memvec"), 1000)
		for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
			compressed, err := compressBlock(data, compression)
			require.NoError(t, err)
			assert.Less(t, len(compressed), len(data))

			decompressed, err := decompressBlock(compressed, compression)
			require.NoError(t, err)
			assert.Equal(t, data, decompressed)
		}
	})

	t.Run("IncompressibleStoredRaw", func(t *testing.T) {
		// High-entropy bytes do not compress; the block falls back to raw.
		data := make([]byte, 256)
		seed := uint64(42)
		for i := range data {
			seed = seed*6364136223846793005 + 1442695040888963407
			data[i] = byte(seed >> 56)
		}

		for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
			compressed, err := compressBlock(data, compression)
			require.NoError(t, err)

			decompressed, err := decompressBlock(compressed, compression)
			require.NoError(t, err)
			assert.Equal(t, data, decompressed)
		}
	})

	t.Run("None", func(t *testing.T) {
		data := []byte("as-is")
		compressed, err := compressBlock(data, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, data, compressed)
	})
}
