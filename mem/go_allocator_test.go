package mem

import (
	"testing"
	"unsafe"
)

func TestGoAllocatorAlignAndZero(t *testing.T) {
	allocator := NewGoAllocator()
	p := allocator.Malloc(13)
	if p == nil {
		t.Fatal("malloc fail")
	}
	if uintptr(p)%8 != 0 {
		t.Fatalf("pointer %p not 8 byte aligned", p)
	}
	if allocator.GetAllocSize() != 16 {
		t.Fatalf("alloc size: got %d, want 16", allocator.GetAllocSize())
	}
	for _, b := range unsafe.Slice((*byte)(p), 16) {
		if b != 0 {
			t.Fatal("memory not zeroed")
		}
	}
	if !allocator.Free(p) {
		t.Fatal("free fail")
	}
	if allocator.Free(p) {
		t.Fatal("double free accepted")
	}
}

func TestGoAllocatorZeroSize(t *testing.T) {
	allocator := NewGoAllocator()
	if p := allocator.Malloc(0); p != nil {
		t.Fatalf("zero size malloc returned %p", p)
	}
}
