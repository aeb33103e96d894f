package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/flswld/gcvm/gc"
	"github.com/flswld/gcvm/list"
	"github.com/flswld/gcvm/logger"
	"github.com/flswld/gcvm/mem"
)

const (
	DefaultStackMax = 256
)

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrClosed         = errors.New("vm closed")
)

type Config struct {
	StackMax         int    `toml:"stack_max"`         // 值栈容量
	InitialThreshold uint32 `toml:"initial_threshold"` // 初始回收阈值
}

func DefaultConfig() *Config {
	return &Config{
		StackMax:         DefaultStackMax,
		InitialThreshold: gc.DefaultInitialThreshold,
	}
}

// VM 值栈即根集合 栈缓冲区和所有对象都从同一个分配器分配
type VM struct {
	allocator mem.Allocator
	heap      *gc.Heap
	stack     *list.ArrayList[gc.Ref]
	stackMax  int
	closed    bool
}

func New(allocator mem.Allocator, cfg *Config) (*VM, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	stackMax := cfg.StackMax
	if stackMax <= 0 {
		stackMax = DefaultStackMax
	}
	heap, err := gc.NewHeap(allocator, gc.Options{InitialThreshold: cfg.InitialThreshold})
	if err != nil {
		return nil, err
	}
	stack, err := list.NewArrayListWithCap[gc.Ref](allocator, stackMax)
	if err != nil {
		return nil, fmt.Errorf("%w: stack buffer of %d entries", gc.ErrAllocationFailure, stackMax)
	}
	v := &VM{
		allocator: allocator,
		heap:      heap,
		stack:     stack,
		stackMax:  stackMax,
		closed:    false,
	}
	logger.Debug("vm created, stack max: %d, initial threshold: %d", stackMax, heap.InitialThreshold())
	return v, nil
}

func (v *VM) Push(ref gc.Ref) error {
	if v.closed {
		return ErrClosed
	}
	if ref != gc.Nil && !v.heap.Contains(ref) {
		return fmt.Errorf("%w: %d", gc.ErrInvalidRef, ref)
	}
	if v.stack.Len() >= v.stackMax {
		return fmt.Errorf("%w: max %d", ErrStackOverflow, v.stackMax)
	}
	return v.stack.Add(ref)
}

func (v *VM) Pop() (gc.Ref, error) {
	if v.closed {
		return gc.Nil, ErrClosed
	}
	ref, ok := v.stack.Pop()
	if !ok {
		return gc.Nil, ErrStackUnderflow
	}
	return ref, nil
}

func (v *VM) Peek() (gc.Ref, error) {
	if v.closed {
		return gc.Nil, ErrClosed
	}
	if v.stack.Len() == 0 {
		return gc.Nil, ErrStackUnderflow
	}
	return v.stack.Get(v.stack.Len() - 1), nil
}

func (v *VM) PushInt(value int64) (gc.Ref, error) {
	if v.closed {
		return gc.Nil, ErrClosed
	}
	if v.stack.Len() >= v.stackMax {
		return gc.Nil, fmt.Errorf("%w: max %d", ErrStackOverflow, v.stackMax)
	}
	ref, err := v.heap.AllocScalar(value, v.stack)
	if err != nil {
		return gc.Nil, err
	}
	return ref, v.stack.Add(ref)
}

// PushPair 弹出栈顶两个值组成pair压栈 栈顶为tail 分配时两个子对象仍在栈上
func (v *VM) PushPair() (gc.Ref, error) {
	if v.closed {
		return gc.Nil, ErrClosed
	}
	n := v.stack.Len()
	if n < 2 {
		return gc.Nil, fmt.Errorf("%w: pair needs 2 values, have %d", ErrStackUnderflow, n)
	}
	head := v.stack.Get(n - 2)
	tail := v.stack.Get(n - 1)
	ref, err := v.heap.AllocPair(head, tail, v.stack)
	if err != nil {
		return gc.Nil, err
	}
	v.stack.Truncate(n - 2)
	return ref, v.stack.Add(ref)
}

// GC 强制回收 VM已销毁时不做任何事 返回零值Stats
func (v *VM) GC() gc.Stats {
	if v.closed {
		logger.Warn("gc on closed vm ignored")
		return gc.Stats{}
	}
	stats := v.heap.Collect(v.stack)
	logger.Info("collected %d objects, %d remaining", stats.Collected, stats.Remaining)
	return stats
}

func (v *VM) LiveObjectCount() uint32 {
	return v.heap.LiveObjectCount()
}

func (v *VM) StackLen() int {
	if v.closed {
		return 0
	}
	return v.stack.Len()
}

func (v *VM) StackMax() int {
	return v.stackMax
}

func (v *VM) Heap() *gc.Heap {
	return v.heap
}

// Roots 当前根集合 只在下一次修改栈之前有效
func (v *VM) Roots() gc.Roots {
	if v.closed {
		return gc.RefSlice(nil)
	}
	return v.stack
}

// Teardown 清空栈 做最后一次回收 释放栈缓冲区 之后VM不可再使用
func (v *VM) Teardown() (gc.Stats, error) {
	if v.closed {
		return gc.Stats{}, ErrClosed
	}
	v.stack.Truncate(0)
	stats, err := v.heap.Teardown()
	v.stack.Free()
	v.closed = true
	if err != nil {
		return stats, err
	}
	logger.Debug("vm teardown, collected %d objects, alloc size left: %d", stats.Collected, v.allocator.GetAllocSize())
	return stats, nil
}

// Format 以(head . tail)形式输出对象 环用<cycle>表示
func (v *VM) Format(ref gc.Ref) string {
	var sb strings.Builder
	v.format(&sb, ref, make(map[gc.Ref]bool))
	return sb.String()
}

func (v *VM) format(sb *strings.Builder, ref gc.Ref, visiting map[gc.Ref]bool) {
	if ref == gc.Nil {
		sb.WriteString("nil")
		return
	}
	kind, err := v.heap.Kind(ref)
	if err != nil {
		sb.WriteString("<invalid>")
		return
	}
	if kind == gc.Scalar {
		value, _ := v.heap.Value(ref)
		sb.WriteString(strconv.FormatInt(value, 10))
		return
	}
	if visiting[ref] {
		sb.WriteString("<cycle>")
		return
	}
	visiting[ref] = true
	head, _ := v.heap.Head(ref)
	tail, _ := v.heap.Tail(ref)
	sb.WriteString("(")
	v.format(sb, head, visiting)
	sb.WriteString(" . ")
	v.format(sb, tail, visiting)
	sb.WriteString(")")
	delete(visiting, ref)
}
