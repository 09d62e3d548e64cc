package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// Snapshot layout, little endian:
//
//	0..7   magic "FAQVEC01"
//	8..15  dim (uint64)
//	16..23 count (uint64)
//	then count records of: id (int64), dim x float32
const headerSize = 24

var snapshotMagic = [8]byte{'F', 'A', 'Q', 'V', 'E', 'C', '0', '1'}

// maxSnapshotDim guards against allocating from a corrupt header.
const maxSnapshotDim = 1 << 16

// ReadSnapshot decodes a flat index from r.
func ReadSnapshot(r io.Reader) (*FlatIndex, error) {
	br := bufio.NewReader(r)
	var header [headerSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	var magic [8]byte
	copy(magic[:], header[:8])
	if magic != snapshotMagic {
		return nil, errors.New("invalid snapshot header (magic mismatch)")
	}
	dim := binary.LittleEndian.Uint64(header[8:16])
	count := binary.LittleEndian.Uint64(header[16:24])
	if dim == 0 || dim > maxSnapshotDim {
		return nil, fmt.Errorf("invalid snapshot dim: %d", dim)
	}

	entries := make([]Entry, 0, min(count, 1<<20))
	record := make([]byte, 8+4*dim)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, fmt.Errorf("read snapshot record %d: %w", i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			off := 8 + 4*j
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(record[off : off+4]))
		}
		entries = append(entries, Entry{
			ID:     faq.VectorID(int64(binary.LittleEndian.Uint64(record[:8]))),
			Vector: vec,
		})
	}
	return NewFlatIndex(int(dim), entries)
}

// WriteSnapshot encodes entries in the snapshot layout.
func WriteSnapshot(w io.Writer, dim int, entries []Entry) error {
	if dim <= 0 || dim > maxSnapshotDim {
		return fmt.Errorf("invalid dim: %d", dim)
	}
	bw := bufio.NewWriter(w)
	var header [headerSize]byte
	copy(header[:8], snapshotMagic[:])
	binary.LittleEndian.PutUint64(header[8:16], uint64(dim))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(entries)))
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	record := make([]byte, 8+4*dim)
	for _, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("vector %d has dim %d, want %d", e.ID, len(e.Vector), dim)
		}
		binary.LittleEndian.PutUint64(record[:8], uint64(int64(e.ID)))
		for j, v := range e.Vector {
			off := 8 + 4*j
			binary.LittleEndian.PutUint32(record[off:off+4], math.Float32bits(v))
		}
		if _, err := bw.Write(record); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadFile reads a snapshot from disk.
func LoadFile(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
