package mem

import (
	"errors"
	"fmt"
	"unsafe"
)

var ErrLeak = errors.New("outstanding allocations")

// TrackingAllocator 记录未释放的分配 用于泄漏检测和分配失败注入
type TrackingAllocator struct {
	Limit       uint64 // 未释放分配数上限 0为不限制
	allocator   Allocator
	outstanding map[unsafe.Pointer]uint64
	mallocCount uint64
	freeCount   uint64
	failCount   uint64
	badFree     uint64
}

func NewTrackingAllocator(allocator Allocator) *TrackingAllocator {
	if allocator == nil {
		allocator = NewGoAllocator()
	}
	return &TrackingAllocator{
		allocator:   allocator,
		outstanding: make(map[unsafe.Pointer]uint64),
	}
}

func (a *TrackingAllocator) Malloc(size uint64) unsafe.Pointer {
	if a.Limit != 0 && uint64(len(a.outstanding)) >= a.Limit {
		a.failCount++
		return nil
	}
	p := a.allocator.Malloc(size)
	if p == nil {
		a.failCount++
		return nil
	}
	a.outstanding[p] = size
	a.mallocCount++
	return p
}

func (a *TrackingAllocator) Free(p unsafe.Pointer) bool {
	if _, exist := a.outstanding[p]; !exist {
		a.badFree++
		return false
	}
	if !a.allocator.Free(p) {
		a.badFree++
		return false
	}
	delete(a.outstanding, p)
	a.freeCount++
	return true
}

func (a *TrackingAllocator) GetAllocSize() uint64 {
	total := uint64(0)
	for _, size := range a.outstanding {
		total += size
	}
	return total
}

func (a *TrackingAllocator) Outstanding() int {
	return len(a.outstanding)
}

func (a *TrackingAllocator) MallocCount() uint64 {
	return a.mallocCount
}

func (a *TrackingAllocator) FreeCount() uint64 {
	return a.freeCount
}

func (a *TrackingAllocator) FailCount() uint64 {
	return a.failCount
}

// BadFreeCount 重复释放或释放未知指针的次数
func (a *TrackingAllocator) BadFreeCount() uint64 {
	return a.badFree
}

// CheckLeaks 存在未释放分配或错误释放时返回错误
func (a *TrackingAllocator) CheckLeaks() error {
	if len(a.outstanding) != 0 {
		return fmt.Errorf("%w: %d allocations, %d bytes", ErrLeak, len(a.outstanding), a.GetAllocSize())
	}
	if a.badFree != 0 {
		return fmt.Errorf("%d invalid frees", a.badFree)
	}
	return nil
}
