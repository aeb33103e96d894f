package mem

import (
	"testing"
	"unsafe"
)

func newTestStaticHeap(t *testing.T, size uint64) *StaticHeap {
	t.Helper()
	region := NewGoAllocator().Malloc(size)
	staticHeap := NewStaticHeap(region, size)
	if staticHeap == nil {
		t.Fatal("create static heap fail")
	}
	return staticHeap
}

func TestStaticHeap(t *testing.T) {
	staticHeap := newTestStaticHeap(t, 8*MB)
	ptrList := make([]unsafe.Pointer, 4)
	for i := 0; i < len(ptrList); i++ {
		ptr := staticHeap.Malloc(1 * MB)
		if ptr == nil {
			t.Fatalf("malloc %d fail", i)
		}
		for j := 0; j < 1*MB; j++ {
			v := (*uint8)(Offset(ptr, int64(j)))
			*v = 0xFF
		}
		ptrList[i] = ptr
	}
	for _, ptr := range ptrList {
		for j := 0; j < 1*MB; j++ {
			v := (*uint8)(Offset(ptr, int64(j)))
			if *v != 0xFF {
				t.Fatalf("byte %d corrupted", j)
			}
		}
		if !staticHeap.Free(ptr) {
			t.Fatal("free fail")
		}
	}
	if staticHeap.GetAllocSize() != 0 || staticHeap.GetBlockNum() != 0 {
		t.Fatalf("after free: size %d blocks %d", staticHeap.GetAllocSize(), staticHeap.GetBlockNum())
	}
}

func TestStaticHeapExhausted(t *testing.T) {
	staticHeap := newTestStaticHeap(t, 4*KB)
	count := 0
	for staticHeap.Malloc(64) != nil {
		count++
		if count > 4*KB {
			t.Fatal("static heap never exhausted")
		}
	}
	if count == 0 {
		t.Fatal("no allocation succeeded")
	}
	if staticHeap.Malloc(8*KB) != nil {
		t.Fatal("oversized malloc succeeded")
	}
}

func TestStaticHeapCoalesce(t *testing.T) {
	staticHeap := newTestStaticHeap(t, 64*KB)
	ptrList := make([]unsafe.Pointer, 0)
	for {
		ptr := staticHeap.Malloc(1 * KB)
		if ptr == nil {
			break
		}
		ptrList = append(ptrList, ptr)
	}
	if staticHeap.Malloc(4*KB) != nil {
		t.Fatal("full heap accepted 4KB")
	}
	for _, ptr := range ptrList {
		staticHeap.Free(ptr)
	}
	ptr := staticHeap.Malloc(32 * KB)
	if ptr == nil {
		t.Fatal("free blocks were not coalesced")
	}
	for _, b := range unsafe.Slice((*byte)(ptr), 32*KB) {
		if b != 0 {
			t.Fatal("reused block not zeroed")
		}
	}
}

func TestStaticHeapBadFree(t *testing.T) {
	staticHeap := newTestStaticHeap(t, 4*KB)
	ptr := staticHeap.Malloc(16)
	if !staticHeap.Free(ptr) {
		t.Fatal("free fail")
	}
	if staticHeap.Free(ptr) {
		t.Fatal("double free accepted")
	}
	var x uint64
	if staticHeap.Free(unsafe.Pointer(&x)) {
		t.Fatal("foreign pointer accepted")
	}
}
