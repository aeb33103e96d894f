package gc

import (
	"fmt"
)

type Kind uint8

const (
	Scalar Kind = iota
	Pair
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Pair:
		return "pair"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Ref 对象句柄 0为空引用
type Ref uint32

const Nil Ref = 0

// Object 堆对象 存放在分配器内存中 因此不包含go指针 边全部用句柄表示
type Object struct {
	kind   Kind
	marked bool  // 只在一次回收过程中有意义 回收之间始终为false
	value  int64 // Scalar的值
	head   Ref   // Pair的第一个子对象
	tail   Ref   // Pair的第二个子对象
	next   Ref   // 堆链表中的下一个对象
}

// Roots 根集合 回收器只读取 不会保留
type Roots interface {
	Len() int
	Get(index int) Ref
}

type RefSlice []Ref

func (s RefSlice) Len() int {
	return len(s)
}

func (s RefSlice) Get(index int) Ref {
	return s[index]
}
