package mem

import (
	"unsafe"
)

type blockHeader uint64

func (h *blockHeader) getFree() bool {
	return (uint64(*h) >> 63) == 1
}

func (h *blockHeader) setFree(free bool) {
	x := uint64(0)
	if free {
		x = 1 << 63
	}
	*h = blockHeader(x | (uint64(*h) & ((1<<64 - 1) >> 1)))
}

func (h *blockHeader) getSize() uint64 {
	return uint64(*h) & ((1<<64 - 1) >> 1)
}

func (h *blockHeader) setSize(size uint64) {
	*h = blockHeader((uint64(*h) & (1 << 63)) | (size & ((1<<64 - 1) >> 1)))
}

// block 块头 next为下一个块相对内存起始地址的偏移
type block struct {
	header blockHeader
	next   uint64
}

const noBlock = ^uint64(0)

var blockSize = SizeOf[block]()

// StaticHeap 在一段固定内存上做首次适配分配 内存耗尽时Malloc返回nil
type StaticHeap struct {
	base      unsafe.Pointer
	size      uint64
	allocSize uint64
	blockNum  uint64
}

func NewStaticHeap(memory unsafe.Pointer, size uint64) *StaticHeap {
	if memory == nil {
		return nil
	}
	size &^= 7
	if size <= blockSize {
		return nil
	}
	h := &StaticHeap{
		base:      memory,
		size:      size,
		allocSize: 0,
		blockNum:  0,
	}
	b := h.blockAt(0)
	b.header = 0
	b.header.setSize(size - blockSize)
	b.header.setFree(true)
	b.next = noBlock
	return h
}

func (h *StaticHeap) blockAt(offset uint64) *block {
	return (*block)(Offset(h.base, int64(offset)))
}

func (h *StaticHeap) Malloc(size uint64) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	size = align8(size)
	for off := uint64(0); off != noBlock; off = h.blockAt(off).next {
		b := h.blockAt(off)
		if !b.header.getFree() {
			continue
		}
		// 向后合并相邻的空闲块
		for size > b.header.getSize() && b.next != noBlock {
			nb := h.blockAt(b.next)
			if !nb.header.getFree() {
				break
			}
			b.header.setSize(b.header.getSize() + nb.header.getSize() + blockSize)
			b.next = nb.next
		}
		if size > b.header.getSize() {
			continue
		}
		if b.header.getSize()-size > blockSize {
			noff := off + blockSize + size
			nb := h.blockAt(noff)
			nb.header = 0
			nb.header.setSize(b.header.getSize() - size - blockSize)
			nb.header.setFree(true)
			nb.next = b.next
			b.header.setSize(size)
			b.next = noff
		}
		b.header.setFree(false)
		h.allocSize += blockSize + b.header.getSize()
		h.blockNum++
		p := Offset(h.base, int64(off+blockSize))
		clear(unsafe.Slice((*byte)(p), b.header.getSize()))
		return p
	}
	return nil
}

func (h *StaticHeap) Free(p unsafe.Pointer) bool {
	if p == nil {
		return false
	}
	addr := uintptr(p)
	base := uintptr(h.base)
	if addr < base+uintptr(blockSize) || addr >= base+uintptr(h.size) {
		return false
	}
	b := (*block)(Offset(p, -int64(blockSize)))
	if b.header.getFree() {
		return false
	}
	b.header.setFree(true)
	h.allocSize -= blockSize + b.header.getSize()
	h.blockNum--
	return true
}

func (h *StaticHeap) GetAllocSize() uint64 {
	return h.allocSize
}

// GetBlockNum 当前已分配的块数
func (h *StaticHeap) GetBlockNum() uint64 {
	return h.blockNum
}

func (h *StaticHeap) GetSize() uint64 {
	return h.size
}
