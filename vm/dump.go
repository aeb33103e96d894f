package vm

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/flswld/gcvm/gc"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// DumpHeap 把堆快照以CBOR编码写入w
func (v *VM) DumpHeap(w io.Writer) error {
	if v.closed {
		return ErrClosed
	}
	data, err := MarshalSnapshot(v.heap.Snapshot(v.stack))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("vm: write heap dump: %w", err)
	}
	return nil
}

func MarshalSnapshot(s *gc.Snapshot) ([]byte, error) {
	data, err := cborEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("vm: marshal heap dump: %w", err)
	}
	return data, nil
}

func ReadHeapDump(r io.Reader) (*gc.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vm: read heap dump: %w", err)
	}
	var s gc.Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal heap dump: %w", err)
	}
	return &s, nil
}
