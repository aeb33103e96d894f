package mem

import (
	"unsafe"
)

// GoAllocator 由go运行时提供内存 分配的内存按8字节对齐并清零
type GoAllocator struct {
	allocSize uint64
	blockMap  map[unsafe.Pointer]uint64
}

func NewGoAllocator() *GoAllocator {
	return &GoAllocator{
		allocSize: 0,
		blockMap:  make(map[unsafe.Pointer]uint64),
	}
}

func (a *GoAllocator) Malloc(size uint64) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	size = align8(size)
	buf := make([]uint64, size/8)
	p := unsafe.Pointer(unsafe.SliceData(buf))
	a.blockMap[p] = size
	a.allocSize += size
	return p
}

func (a *GoAllocator) Free(p unsafe.Pointer) bool {
	size, exist := a.blockMap[p]
	if !exist {
		return false
	}
	delete(a.blockMap, p)
	a.allocSize -= size
	return true
}

func (a *GoAllocator) GetAllocSize() uint64 {
	return a.allocSize
}
