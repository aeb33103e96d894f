package mem

import (
	"fmt"
	"io"
	"unsafe"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
)

var (
	DefaultLogWriter io.Writer = nil
)

// Allocator 内存提供者 Malloc失败返回nil
type Allocator interface {
	Malloc(size uint64) unsafe.Pointer
	Free(p unsafe.Pointer) bool
	GetAllocSize() uint64
}

// MallocType 分配n个T 通过分配器分配的T不能包含go指针
func MallocType[T any](allocator Allocator, n uint64) *T {
	p := (*T)(allocator.Malloc(n * SizeOf[T]()))
	if DefaultLogWriter != nil {
		_, _ = fmt.Fprintf(DefaultLogWriter, "[Malloc] allocator:%T size:%d ptr:%p\n", allocator, n*SizeOf[T](), p)
	}
	return p
}

func FreeType[T any](allocator Allocator, t *T) bool {
	ok := allocator.Free(unsafe.Pointer(t))
	if DefaultLogWriter != nil {
		_, _ = fmt.Fprintf(DefaultLogWriter, "[Free] allocator:%T ptr:%p ok:%v\n", allocator, unsafe.Pointer(t), ok)
	}
	return ok
}

func SizeOf[T any]() uint64 {
	var t T
	return uint64(unsafe.Sizeof(t))
}

func Offset(p unsafe.Pointer, offset int64) unsafe.Pointer {
	return unsafe.Add(p, offset)
}

func OffsetType[T any](t *T, offset int64) *T {
	return (*T)(Offset(unsafe.Pointer(t), offset*int64(SizeOf[T]())))
}

func MemCpy(dst unsafe.Pointer, src unsafe.Pointer, size uint64) {
	if size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}

func MemCpyType[T any](dst *T, src *T, n uint64) {
	MemCpy(unsafe.Pointer(dst), unsafe.Pointer(src), n*SizeOf[T]())
}

func align8(size uint64) uint64 {
	return (size + 7) &^ 7
}
