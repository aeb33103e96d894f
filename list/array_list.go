package list

import (
	"encoding/json"
	"errors"

	"github.com/flswld/gcvm/mem"
)

const (
	initCap = 8
)

var ErrAllocFail = errors.New("array list: allocation failed")

// ArrayList 数据存放在分配器内存中 T不能包含go指针
type ArrayList[T any] struct {
	data      *T
	len       int
	cap       int
	allocator mem.Allocator
}

func NewArrayList[T any](allocator mem.Allocator) (*ArrayList[T], error) {
	return NewArrayListWithCap[T](allocator, initCap)
}

func NewArrayListWithCap[T any](allocator mem.Allocator, cap int) (*ArrayList[T], error) {
	if cap < initCap {
		cap = initCap
	}
	data := mem.MallocType[T](allocator, uint64(cap))
	if data == nil {
		return nil, ErrAllocFail
	}
	a := &ArrayList[T]{
		data:      data,
		len:       0,
		cap:       cap,
		allocator: allocator,
	}
	return a, nil
}

func (a *ArrayList[T]) Len() int {
	return a.len
}

func (a *ArrayList[T]) Cap() int {
	return a.cap
}

// Add 扩容失败时返回错误 原有数据不变
func (a *ArrayList[T]) Add(value T) error {
	if a.allocator == nil {
		return ErrAllocFail
	}
	if a.len >= a.cap {
		data := mem.MallocType[T](a.allocator, uint64(a.cap*2))
		if data == nil {
			return ErrAllocFail
		}
		mem.MemCpyType[T](data, a.data, uint64(a.len))
		mem.FreeType[T](a.allocator, a.data)
		a.data = data
		a.cap *= 2
	}
	p := mem.OffsetType[T](a.data, int64(a.len))
	*p = value
	a.len++
	return nil
}

func (a *ArrayList[T]) Set(index int, value T) {
	if index < 0 || index >= a.len {
		return
	}
	p := mem.OffsetType[T](a.data, int64(index))
	*p = value
}

func (a *ArrayList[T]) Get(index int) T {
	if index < 0 || index >= a.len {
		var t T
		return t
	}
	p := mem.OffsetType[T](a.data, int64(index))
	return *p
}

func (a *ArrayList[T]) Pop() (T, bool) {
	if a.len == 0 {
		var t T
		return t, false
	}
	a.len--
	p := mem.OffsetType[T](a.data, int64(a.len))
	value := *p
	var zero T
	*p = zero
	return value, true
}

func (a *ArrayList[T]) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	for a.len > n {
		a.Pop()
	}
}

func (a *ArrayList[T]) For(fn func(index int, value T) (next bool)) {
	for index := 0; index < a.len; index++ {
		value := a.Get(index)
		next := fn(index, value)
		if !next {
			return
		}
	}
}

// Free 释放数据内存 之后不可再使用
func (a *ArrayList[T]) Free() {
	if a.data == nil {
		return
	}
	mem.FreeType[T](a.allocator, a.data)
	a.data = nil
	a.len = 0
	a.cap = 0
}

func (a *ArrayList[T]) MarshalJSON() ([]byte, error) {
	aa := make([]T, a.Len())
	a.For(func(index int, value T) (next bool) {
		aa[index] = value
		return true
	})
	data, err := json.Marshal(aa)
	return data, err
}

// UnmarshalJSON 只能用于NewArrayList创建的列表 零值列表没有分配器
func (a *ArrayList[T]) UnmarshalJSON(data []byte) error {
	if a.allocator == nil {
		return ErrAllocFail
	}
	aa := make([]T, 0, initCap)
	err := json.Unmarshal(data, &aa)
	if err != nil {
		return err
	}
	for _, v := range aa {
		err = a.Add(v)
		if err != nil {
			return err
		}
	}
	return nil
}
