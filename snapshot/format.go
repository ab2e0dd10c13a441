// Package snapshot defines the durable artifact format for the vector
// memory store.
//
// A snapshot is a pair of artifacts: an index artifact holding the vector
// collection and a metadata artifact holding the parallel document
// collection. Both carry the same snapshot ID in their headers, so a reader
// can detect a torn pair even on backends that cannot rename two blobs
// atomically.
//
// Artifact layout (little-endian):
//
//	magic      [4]byte   "MVIX" (index) / "MVMD" (metadata)
//	version    uint16
//	compression uint8
//	snapshotID [16]byte
//	-- metadata only: codec name (uint16 length + bytes)
//	dimension  uint32    (index only)
//	count      uint64
//	payloadLen uint64
//	payload    [payloadLen]byte
//	crc        uint32    CRC32-IEEE of payload as stored
//
// The index payload is count*dimension float32 values; the metadata payload
// is the codec encoding of the document slice. Payloads may be block
// compressed (see Compression).
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/ragmem/memvec/codec"
	"github.com/ragmem/memvec/metadata"
)

const (
	formatVersion = uint16(1)

	// maxPayloadLen bounds a single artifact payload (1 GiB). Anything
	// larger is assumed to be a corrupt length field.
	maxPayloadLen = 1 << 30
)

var (
	indexMagic    = [4]byte{'M', 'V', 'I', 'X'}
	metadataMagic = [4]byte{'M', 'V', 'M', 'D'}

	// ErrBadMagic is returned when an artifact does not start with the
	// expected magic bytes.
	ErrBadMagic = errors.New("snapshot: bad magic")

	// ErrUnsupportedVersion is returned for artifacts written by an
	// unknown format version.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported format version")

	// ErrUnknownCodec is returned when a metadata artifact names a codec
	// this build does not provide.
	ErrUnknownCodec = errors.New("snapshot: unknown codec")
)

// ChecksumMismatchError is returned when payload verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("snapshot: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Index is the decoded form of the index artifact.
type Index struct {
	SnapshotID uuid.UUID
	Dimension  int
	Vectors    [][]float32
}

// Metadata is the decoded form of the metadata artifact.
type Metadata struct {
	SnapshotID uuid.UUID
	CodecName  string
	Documents  []metadata.Document
}

// EncodeIndex writes the index artifact for snap to w.
func EncodeIndex(w io.Writer, snap *Index, compression Compression) error {
	if !compression.valid() {
		return fmt.Errorf("snapshot: invalid compression %d", compression)
	}

	raw := make([]byte, 0, len(snap.Vectors)*snap.Dimension*4)
	var scratch [4]byte
	for _, vec := range snap.Vectors {
		for _, f := range vec {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f))
			raw = append(raw, scratch[:]...)
		}
	}

	payload, err := compressBlock(raw, compression)
	if err != nil {
		return fmt.Errorf("snapshot: compress index payload: %w", err)
	}

	if err := writeHeader(w, indexMagic, compression, snap.SnapshotID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(snap.Dimension)); err != nil {
		return err
	}
	return writePayload(w, uint64(len(snap.Vectors)), payload)
}

// DecodeIndex reads an index artifact from r.
func DecodeIndex(r io.Reader) (*Index, error) {
	compression, id, err := readHeader(r, indexMagic)
	if err != nil {
		return nil, err
	}

	var dimension uint32
	if err := binary.Read(r, binary.LittleEndian, &dimension); err != nil {
		return nil, fmt.Errorf("snapshot: read dimension: %w", err)
	}
	if dimension == 0 {
		return nil, fmt.Errorf("snapshot: invalid dimension 0")
	}

	count, raw, err := readPayload(r, compression)
	if err != nil {
		return nil, err
	}

	// Header fields are untrusted: derive the row count from the payload
	// actually read and cross-check the header against it, so a corrupt
	// count can never drive an allocation.
	rowSize := uint64(dimension) * 4
	if uint64(len(raw))%rowSize != 0 || uint64(len(raw))/rowSize != count {
		return nil, fmt.Errorf("snapshot: index payload size mismatch: header claims %d x %d, got %d bytes",
			count, dimension, len(raw))
	}

	vectors := make([][]float32, len(raw)/int(rowSize))
	off := 0
	for i := range vectors {
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
			off += 4
		}
		vectors[i] = vec
	}

	return &Index{
		SnapshotID: id,
		Dimension:  int(dimension),
		Vectors:    vectors,
	}, nil
}

// EncodeMetadata writes the metadata artifact for snap to w using c.
func EncodeMetadata(w io.Writer, snap *Metadata, c codec.Codec, compression Compression) error {
	if c == nil {
		c = codec.Default
	}
	if !compression.valid() {
		return fmt.Errorf("snapshot: invalid compression %d", compression)
	}

	raw, err := c.Marshal(snap.Documents)
	if err != nil {
		return fmt.Errorf("snapshot: encode documents: %w", err)
	}
	payload, err := compressBlock(raw, compression)
	if err != nil {
		return fmt.Errorf("snapshot: compress metadata payload: %w", err)
	}

	if err := writeHeader(w, metadataMagic, compression, snap.SnapshotID); err != nil {
		return err
	}
	name := []byte(c.Name())
	if err := binary.Write(w, binary.LittleEndian, uint16(len(name))); err != nil {
		return err
	}
	if _, err := w.Write(name); err != nil {
		return err
	}
	return writePayload(w, uint64(len(snap.Documents)), payload)
}

// DecodeMetadata reads a metadata artifact from r, selecting the codec
// recorded in its header.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	compression, id, err := readHeader(r, metadataMagic)
	if err != nil {
		return nil, err
	}

	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("snapshot: read codec name length: %w", err)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("snapshot: read codec name: %w", err)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, string(name))
	}

	count, raw, err := readPayload(r, compression)
	if err != nil {
		return nil, err
	}

	var documents []metadata.Document
	if err := c.Unmarshal(raw, &documents); err != nil {
		return nil, fmt.Errorf("snapshot: decode documents: %w", err)
	}
	if uint64(len(documents)) != count {
		return nil, fmt.Errorf("snapshot: metadata count mismatch: header %d, payload %d", count, len(documents))
	}

	return &Metadata{
		SnapshotID: id,
		CodecName:  string(name),
		Documents:  documents,
	}, nil
}

func writeHeader(w io.Writer, magic [4]byte, compression Compression, id uuid.UUID) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(compression)); err != nil {
		return err
	}
	_, err := w.Write(id[:])
	return err
}

func readHeader(r io.Reader, wantMagic [4]byte) (Compression, uuid.UUID, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, uuid.Nil, fmt.Errorf("snapshot: read magic: %w", err)
	}
	if magic != wantMagic {
		return 0, uuid.Nil, fmt.Errorf("%w: got %q, want %q", ErrBadMagic, magic[:], wantMagic[:])
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, uuid.Nil, fmt.Errorf("snapshot: read version: %w", err)
	}
	if version != formatVersion {
		return 0, uuid.Nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var comp uint8
	if err := binary.Read(r, binary.LittleEndian, &comp); err != nil {
		return 0, uuid.Nil, fmt.Errorf("snapshot: read compression: %w", err)
	}
	compression := Compression(comp)
	if !compression.valid() {
		return 0, uuid.Nil, fmt.Errorf("snapshot: invalid compression %d", comp)
	}

	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return 0, uuid.Nil, fmt.Errorf("snapshot: read snapshot id: %w", err)
	}

	return compression, id, nil
}

func writePayload(w io.Writer, count uint64, payload []byte) error {
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(payload))); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, crc32.ChecksumIEEE(payload))
}

func readPayload(r io.Reader, compression Compression) (uint64, []byte, error) {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, nil, fmt.Errorf("snapshot: read count: %w", err)
	}

	var payloadLen uint64
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return 0, nil, fmt.Errorf("snapshot: read payload length: %w", err)
	}
	if payloadLen > maxPayloadLen {
		return 0, nil, fmt.Errorf("snapshot: payload length %d exceeds limit", payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("snapshot: read payload: %w", err)
	}

	var crc uint32
	if err := binary.Read(r, binary.LittleEndian, &crc); err != nil {
		return 0, nil, fmt.Errorf("snapshot: read checksum: %w", err)
	}
	if actual := crc32.ChecksumIEEE(payload); actual != crc {
		return 0, nil, &ChecksumMismatchError{Expected: crc, Actual: actual}
	}

	raw, err := decompressBlock(payload, compression)
	if err != nil {
		return 0, nil, err
	}
	return count, raw, nil
}
