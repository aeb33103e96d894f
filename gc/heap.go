package gc

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/flswld/gcvm/logger"
	"github.com/flswld/gcvm/mem"
)

const (
	DefaultInitialThreshold = 8
)

var (
	ErrAllocationFailure = errors.New("allocation failure")
	ErrNilAllocator      = errors.New("nil allocator")
	ErrInvalidKind       = errors.New("invalid object kind")
	ErrInvalidRef        = errors.New("invalid object ref")
	ErrNotPair           = errors.New("object is not a pair")
	ErrClosed            = errors.New("heap closed")
)

type Options struct {
	InitialThreshold uint32 // 初始回收阈值 0使用默认值
}

// Heap 拥有所有对象 对象按分配顺序串成侵入式单链表 新对象插在表头
// 非并发安全 只允许一个mutator使用
type Heap struct {
	allocator        mem.Allocator
	slots            []unsafe.Pointer // 句柄表 slots[ref-1]为对象内存
	freeRefs         []Ref            // 可复用的句柄
	head             Ref
	liveCount        uint32
	threshold        uint32
	initialThreshold uint32
	markStack        []Ref
	collections      uint64
	totalCollected   uint64
	lastStats        *Stats
	closed           bool
}

func NewHeap(allocator mem.Allocator, opts Options) (*Heap, error) {
	if allocator == nil {
		return nil, ErrNilAllocator
	}
	if opts.InitialThreshold == 0 {
		opts.InitialThreshold = DefaultInitialThreshold
	}
	h := &Heap{
		allocator:        allocator,
		slots:            make([]unsafe.Pointer, 0),
		freeRefs:         make([]Ref, 0),
		head:             Nil,
		liveCount:        0,
		threshold:        opts.InitialThreshold,
		initialThreshold: opts.InitialThreshold,
		markStack:        make([]Ref, 0),
	}
	return h, nil
}

func (h *Heap) AllocScalar(value int64, roots Roots) (Ref, error) {
	return h.Allocate(Scalar, value, Nil, Nil, roots)
}

// AllocPair head和tail必须能从roots到达 否则可能在分配前被回收
func (h *Heap) AllocPair(head Ref, tail Ref, roots Roots) (Ref, error) {
	return h.Allocate(Pair, 0, head, tail, roots)
}

// Allocate 分配前可能触发一次回收 失败时堆状态不变
func (h *Heap) Allocate(kind Kind, value int64, head Ref, tail Ref, roots Roots) (Ref, error) {
	if h.closed {
		return Nil, ErrClosed
	}
	switch kind {
	case Scalar:
		head, tail = Nil, Nil
	case Pair:
		value = 0
	default:
		return Nil, fmt.Errorf("%w: %d", ErrInvalidKind, kind)
	}
	h.MaybeCollect(roots)
	if !h.validChild(head) || !h.validChild(tail) {
		return Nil, fmt.Errorf("%w: pair children %d, %d", ErrInvalidRef, head, tail)
	}
	if len(h.freeRefs) == 0 && uint64(len(h.slots)) >= math.MaxUint32 {
		return Nil, fmt.Errorf("%w: handle table full", ErrAllocationFailure)
	}
	obj := mem.MallocType[Object](h.allocator, 1)
	if obj == nil {
		return Nil, fmt.Errorf("%w: %s object, %d live", ErrAllocationFailure, kind, h.liveCount)
	}
	*obj = Object{
		kind:   kind,
		marked: false,
		value:  value,
		head:   head,
		tail:   tail,
		next:   h.head,
	}
	ref := h.reserveRef(unsafe.Pointer(obj))
	h.head = ref
	h.liveCount++
	return ref, nil
}

func (h *Heap) reserveRef(p unsafe.Pointer) Ref {
	if n := len(h.freeRefs); n != 0 {
		ref := h.freeRefs[n-1]
		h.freeRefs = h.freeRefs[:n-1]
		h.slots[ref-1] = p
		return ref
	}
	h.slots = append(h.slots, p)
	return Ref(len(h.slots))
}

// destroyUnmarked 只由sweep调用
func (h *Heap) destroyUnmarked(ref Ref, obj *Object) {
	if !mem.FreeType[Object](h.allocator, obj) {
		logger.Error("allocator rejected free of object %d, stack:\n%s", ref, logger.Stack())
		panic(fmt.Sprintf("gc: allocator rejected free of object %d", ref))
	}
	h.slots[ref-1] = nil
	h.freeRefs = append(h.freeRefs, ref)
	h.liveCount--
}

// MaybeCollect 存活对象数达到阈值时执行一次回收
func (h *Heap) MaybeCollect(roots Roots) (Stats, bool) {
	if h.liveCount < h.threshold {
		return Stats{}, false
	}
	return h.collect(roots, false), true
}

func (h *Heap) nextThreshold() uint32 {
	if h.liveCount == 0 {
		return h.initialThreshold
	}
	if h.threshold > math.MaxUint32/2 {
		return math.MaxUint32
	}
	return h.threshold * 2
}

func (h *Heap) lookup(ref Ref) *Object {
	if ref == Nil || int(ref) > len(h.slots) || h.slots[ref-1] == nil {
		panic(fmt.Sprintf("gc: dangling object ref %d", ref))
	}
	return (*Object)(h.slots[ref-1])
}

func (h *Heap) Contains(ref Ref) bool {
	return ref != Nil && int(ref) <= len(h.slots) && h.slots[ref-1] != nil
}

func (h *Heap) validChild(ref Ref) bool {
	return ref == Nil || h.Contains(ref)
}

func (h *Heap) get(ref Ref) (*Object, error) {
	if !h.Contains(ref) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRef, ref)
	}
	return (*Object)(h.slots[ref-1]), nil
}

func (h *Heap) Kind(ref Ref) (Kind, error) {
	obj, err := h.get(ref)
	if err != nil {
		return 0, err
	}
	return obj.kind, nil
}

func (h *Heap) Value(ref Ref) (int64, error) {
	obj, err := h.get(ref)
	if err != nil {
		return 0, err
	}
	return obj.value, nil
}

func (h *Heap) Head(ref Ref) (Ref, error) {
	obj, err := h.pair(ref)
	if err != nil {
		return Nil, err
	}
	return obj.head, nil
}

func (h *Heap) Tail(ref Ref) (Ref, error) {
	obj, err := h.pair(ref)
	if err != nil {
		return Nil, err
	}
	return obj.tail, nil
}

func (h *Heap) SetHead(ref Ref, child Ref) error {
	obj, err := h.pair(ref)
	if err != nil {
		return err
	}
	if !h.validChild(child) {
		return fmt.Errorf("%w: %d", ErrInvalidRef, child)
	}
	obj.head = child
	return nil
}

func (h *Heap) SetTail(ref Ref, child Ref) error {
	obj, err := h.pair(ref)
	if err != nil {
		return err
	}
	if !h.validChild(child) {
		return fmt.Errorf("%w: %d", ErrInvalidRef, child)
	}
	obj.tail = child
	return nil
}

func (h *Heap) pair(ref Ref) (*Object, error) {
	obj, err := h.get(ref)
	if err != nil {
		return nil, err
	}
	if obj.kind != Pair {
		return nil, fmt.Errorf("%w: %d is %s", ErrNotPair, ref, obj.kind)
	}
	return obj, nil
}

func (h *Heap) Marked(ref Ref) bool {
	obj, err := h.get(ref)
	return err == nil && obj.marked
}

func (h *Heap) LiveObjectCount() uint32 {
	return h.liveCount
}

func (h *Heap) Threshold() uint32 {
	return h.threshold
}

func (h *Heap) InitialThreshold() uint32 {
	return h.initialThreshold
}

// For 按链表顺序遍历所有对象 从最新分配的开始
func (h *Heap) For(fn func(ref Ref) (next bool)) {
	for ref := h.head; ref != Nil; {
		obj := h.lookup(ref)
		if !fn(ref) {
			return
		}
		ref = obj.next
	}
}

// Verify 检查链表和计数是否一致 只用于诊断和测试
func (h *Heap) Verify() error {
	count := uint32(0)
	for ref := h.head; ref != Nil; {
		if count > uint32(len(h.slots)) {
			return errors.New("heap list has a cycle")
		}
		obj, err := h.get(ref)
		if err != nil {
			return fmt.Errorf("heap list: %w", err)
		}
		if obj.marked {
			return fmt.Errorf("object %d still marked outside collection", ref)
		}
		if obj.kind != Scalar && obj.kind != Pair {
			return fmt.Errorf("object %d: %w: %d", ref, ErrInvalidKind, obj.kind)
		}
		if obj.kind == Pair && (!h.validChild(obj.head) || !h.validChild(obj.tail)) {
			return fmt.Errorf("pair %d has dangling child (%d, %d)", ref, obj.head, obj.tail)
		}
		count++
		ref = obj.next
	}
	if count != h.liveCount {
		return fmt.Errorf("live count %d, list holds %d objects", h.liveCount, count)
	}
	used := uint32(len(h.slots) - len(h.freeRefs))
	if used != h.liveCount {
		return fmt.Errorf("live count %d, handle table holds %d objects", h.liveCount, used)
	}
	return nil
}

// Teardown 以空根集合做最后一次回收 释放所有对象和辅助存储
func (h *Heap) Teardown() (Stats, error) {
	if h.closed {
		return Stats{}, ErrClosed
	}
	stats := h.collect(nil, true)
	if h.liveCount != 0 {
		return stats, fmt.Errorf("%d objects survived teardown", h.liveCount)
	}
	h.release()
	return stats, nil
}

// Release 不做标记 直接释放所有对象 包括仍被根引用的对象 之后堆不可再使用
func (h *Heap) Release() error {
	if h.closed {
		return ErrClosed
	}
	rejected := 0
	for ref := h.head; ref != Nil; {
		obj := h.lookup(ref)
		next := obj.next
		if !mem.FreeType[Object](h.allocator, obj) {
			rejected++
		}
		h.slots[ref-1] = nil
		ref = next
	}
	released := h.liveCount
	h.head = Nil
	h.liveCount = 0
	h.release()
	logger.Debug("heap released, %d objects freed", released)
	if rejected != 0 {
		return fmt.Errorf("allocator rejected free of %d objects", rejected)
	}
	return nil
}

func (h *Heap) release() {
	h.slots = nil
	h.freeRefs = nil
	h.markStack = nil
	h.closed = true
}
