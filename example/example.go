package example

import (
	"fmt"

	"github.com/flswld/gcvm/gc"
	"github.com/flswld/gcvm/logger"
	"github.com/flswld/gcvm/mem"
	"github.com/flswld/gcvm/vm"
)

// StackVM 通过值栈使用虚拟机
func StackVM() {
	logger.InitLogger(&logger.Config{
		AppName:   "example", // 应用名
		Level:     logger.DEBUG,
		TrackLine: true, // 记录调用位置
	})
	defer logger.CloseLogger()

	// 分配器 包一层泄漏检测
	allocator := mem.NewTrackingAllocator(mem.NewGoAllocator())
	v, err := vm.New(allocator, &vm.Config{
		StackMax:         256, // 值栈容量
		InitialThreshold: 8,   // 初始回收阈值
	})
	if err != nil {
		panic(err)
	}

	// ((1 . 2) . 3)
	_, _ = v.PushInt(1)
	_, _ = v.PushInt(2)
	_, _ = v.PushPair()
	_, _ = v.PushInt(3)
	p, _ := v.PushPair()
	fmt.Println(v.Format(p))

	stats := v.GC()
	fmt.Printf("collected: %d, remaining: %d\n", stats.Collected, stats.Remaining)

	// 销毁后分配器中不应有残留
	_, _ = v.Teardown()
	if err := allocator.CheckLeaks(); err != nil {
		panic(err)
	}
}

// StaticHeapVM 在固定大小的内存上运行 内存耗尽时返回gc.ErrAllocationFailure
func StaticHeapVM() {
	region := mem.NewGoAllocator().Malloc(16 * mem.KB)
	staticHeap := mem.NewStaticHeap(region, 16*mem.KB)
	v, err := vm.New(staticHeap, &vm.Config{StackMax: 1024})
	if err != nil {
		panic(err)
	}
	for i := 0; ; i++ {
		_, err = v.PushInt(int64(i))
		if err != nil {
			fmt.Printf("stopped after %d values: %v\n", i, err)
			break
		}
	}
	_, _ = v.Teardown()
}

// DirectHeap 不经过虚拟机直接使用堆 根集合由调用者提供
func DirectHeap() {
	h, err := gc.NewHeap(mem.NewGoAllocator(), gc.Options{InitialThreshold: 4})
	if err != nil {
		panic(err)
	}
	roots := gc.RefSlice{}
	a, _ := h.AllocScalar(1, roots)
	roots = append(roots, a)
	b, _ := h.AllocPair(a, gc.Nil, roots)
	roots = append(roots, b)

	// 形成环
	_ = h.SetTail(b, b)
	h.Collect(roots[1:])
	fmt.Printf("live: %d, threshold: %d\n", h.LiveObjectCount(), h.Threshold())
	_, _ = h.Teardown()
}
