package toolbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"unsafe"
)

// metadataKey is the reserved header entry holding free-form string metadata.
const metadataKey = "__metadata__"

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

// WriteSafeTensors writes tensors (sorted by name) and optional string
// metadata in the safetensors format.
func WriteSafeTensors(w io.Writer, tensors map[string]*AF32, metadata map[string]string) error {
	header := map[string]any{}
	dataOffset := 0

	keys := []string{}
	for k := range tensors {
		if k == metadataKey {
			return fmt.Errorf("tensor name %s is reserved", metadataKey)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 4
		end := dataOffset

		header[k] = SafeTensorInfo{
			DType:       "F32",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, end},
		}
	}
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// ReadSafeTensors reads every F32 tensor in a safetensors stream, along with
// the header metadata (nil if the file has none).
func ReadSafeTensors(r io.ReaderAt) (map[string]*AF32, map[string]string, error) {
	var lenBytes [8]byte
	if _, err := r.ReadAt(lenBytes[:], 0); err != nil {
		return nil, nil, fmt.Errorf("while reading header length: %w", err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBytes[:])
	if headerLen > 100<<20 {
		return nil, nil, fmt.Errorf("header length %d is implausibly large", headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := r.ReadAt(headerBytes, 8); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	rawHeader := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &rawHeader); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	var metadata map[string]string
	if raw, ok := rawHeader[metadataKey]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, nil, fmt.Errorf("while reading header metadata: %w", err)
		}
		delete(rawHeader, metadataKey)
	}

	tensors := map[string]*AF32{}
	for k, raw := range rawHeader {
		hdr := SafeTensorInfo{}
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, nil, fmt.Errorf("while reading header entry %s: %w", k, err)
		}
		if hdr.DType != "F32" {
			return nil, nil, fmt.Errorf("unsupported dtype %s for %s", hdr.DType, k)
		}
		if len(hdr.Shape) == 0 || len(hdr.Shape) > 3 {
			return nil, nil, fmt.Errorf("unsupported shape %v for %s", hdr.Shape, k)
		}
		if len(hdr.DataOffsets) != 2 {
			return nil, nil, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}

		size := 1
		for _, s := range hdr.Shape {
			if s < 1 {
				return nil, nil, fmt.Errorf("bad shape %v for %s", hdr.Shape, k)
			}
			size *= s
		}

		sizeBytes := size * 4
		if hdr.DataOffsets[1]-hdr.DataOffsets[0] != sizeBytes {
			return nil, nil, fmt.Errorf("data offsets %v do not match shape %v for %s", hdr.DataOffsets, hdr.Shape, k)
		}
		valBytes := make([]byte, sizeBytes)
		if _, err := r.ReadAt(valBytes, 8+int64(headerLen)+int64(hdr.DataOffsets[0])); err != nil {
			return nil, nil, fmt.Errorf("while reading bytes for %s: %w", k, err)
		}

		tensors[k] = &AF32{
			V:     castToF32(valBytes),
			Shape: hdr.Shape,
		}
	}

	return tensors, metadata, nil
}

func castToF32(b []byte) []float32 {
	f := unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
	return f
}
