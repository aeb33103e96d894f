package gc

import (
	"time"

	"github.com/flswld/gcvm/logger"
)

// Stats 一次回收的统计
type Stats struct {
	Collected       uint32        // 回收的对象数
	Remaining       uint32        // 回收后存活的对象数
	ThresholdBefore uint32        // 回收前的阈值
	ThresholdAfter  uint32        // 回收后的阈值
	Forced          bool          // 是否为显式回收
	Duration        time.Duration // 耗时
	Timestamp       time.Time     // 开始时间
}

// Collect 显式回收 先标记后清除 然后调整阈值 堆已销毁时不做任何事 返回零值Stats
func (h *Heap) Collect(roots Roots) Stats {
	if h.closed {
		logger.Warn("collect on closed heap ignored")
		return Stats{}
	}
	return h.collect(roots, true)
}

func (h *Heap) collect(roots Roots, forced bool) Stats {
	start := time.Now()
	stats := Stats{
		ThresholdBefore: h.threshold,
		Forced:          forced,
		Timestamp:       start,
	}
	h.markAll(roots)
	stats.Collected = h.sweep()
	h.threshold = h.nextThreshold()
	stats.Remaining = h.liveCount
	stats.ThresholdAfter = h.threshold
	stats.Duration = time.Since(start)

	h.collections++
	h.totalCollected += uint64(stats.Collected)
	h.lastStats = &stats
	logger.Debug("collected %d objects, %d remaining, threshold %d -> %d",
		stats.Collected, stats.Remaining, stats.ThresholdBefore, stats.ThresholdAfter)
	return stats
}

func (h *Heap) markAll(roots Roots) {
	if roots == nil {
		return
	}
	for i := 0; i < roots.Len(); i++ {
		h.mark(roots.Get(i))
	}
}

// mark 用显式栈代替递归 已标记的对象直接跳过 所以环不会死循环
func (h *Heap) mark(root Ref) {
	if root == Nil {
		return
	}
	stack := append(h.markStack[:0], root)
	for len(stack) != 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj := h.lookup(ref)
		if obj.marked {
			continue
		}
		obj.marked = true
		if obj.kind != Pair {
			continue
		}
		if obj.head != Nil {
			stack = append(stack, obj.head)
		}
		if obj.tail != Nil {
			stack = append(stack, obj.tail)
		}
	}
	h.markStack = stack[:0]
}

// sweep slot指向存放当前对象句柄的位置 即表头或前一个存活对象的next
// 摘除表头和摘除中间节点走同一条路径
func (h *Heap) sweep() uint32 {
	collected := uint32(0)
	slot := &h.head
	for *slot != Nil {
		ref := *slot
		obj := h.lookup(ref)
		if !obj.marked {
			*slot = obj.next
			h.destroyUnmarked(ref, obj)
			collected++
			continue
		}
		obj.marked = false
		slot = &obj.next
	}
	return collected
}

func (h *Heap) Collections() uint64 {
	return h.collections
}

func (h *Heap) TotalCollected() uint64 {
	return h.totalCollected
}

// LastStats 最近一次回收的统计 尚未回收时返回nil
func (h *Heap) LastStats() *Stats {
	return h.lastStats
}
