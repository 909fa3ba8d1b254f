package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/clipdex/clipdex/internal/model"
)

// Binary layout of a persisted index: 4-byte magic, uint32 dim, uint32
// count, then count rows of dim little-endian float32s. Metadata travels in
// a JSON sidecar; both files must exist and agree on the entry count or the
// pair is rejected and rebuilt.
var indexMagic = [4]byte{'C', 'D', 'X', '1'}

func encodeVectors(dim int, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(indexMagic[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(dim)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return nil, err
	}
	for _, row := range vectors {
		if err := binary.Write(&buf, binary.LittleEndian, row); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(r io.Reader) (int, [][]float32, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("read index header: %w", err)
	}
	if magic != indexMagic {
		return 0, nil, fmt.Errorf("bad index magic %q", magic)
	}
	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return 0, nil, fmt.Errorf("read index dim: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, nil, fmt.Errorf("read index count: %w", err)
	}
	vectors := make([][]float32, 0, count)
	for i := uint32(0); i < count; i++ {
		row := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return 0, nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, row)
	}
	return int(dim), vectors, nil
}

func encodeMetadata(entries []model.IndexEntry) ([]byte, error) {
	return json.Marshal(entries)
}

func decodeMetadata(r io.Reader) ([]model.IndexEntry, error) {
	var entries []model.IndexEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode index metadata: %w", err)
	}
	return entries, nil
}
