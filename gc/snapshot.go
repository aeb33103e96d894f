package gc

// ObjectInfo 快照中的一个对象
type ObjectInfo struct {
	Ref   Ref    `json:"ref" cbor:"ref"`
	Kind  string `json:"kind" cbor:"kind"`
	Value int64  `json:"value,omitempty" cbor:"value,omitempty"`
	Head  Ref    `json:"head,omitempty" cbor:"head,omitempty"`
	Tail  Ref    `json:"tail,omitempty" cbor:"tail,omitempty"`
}

// Snapshot 堆的只读拷贝 Objects按链表顺序排列
type Snapshot struct {
	LiveCount        uint32       `json:"live_count" cbor:"live_count"`
	Threshold        uint32       `json:"threshold" cbor:"threshold"`
	InitialThreshold uint32       `json:"initial_threshold" cbor:"initial_threshold"`
	Collections      uint64       `json:"collections" cbor:"collections"`
	TotalCollected   uint64       `json:"total_collected" cbor:"total_collected"`
	AllocSize        uint64       `json:"alloc_size" cbor:"alloc_size"`
	Roots            []Ref        `json:"roots" cbor:"roots"`
	Objects          []ObjectInfo `json:"objects" cbor:"objects"`
}

func (h *Heap) Snapshot(roots Roots) *Snapshot {
	s := &Snapshot{
		LiveCount:        h.liveCount,
		Threshold:        h.threshold,
		InitialThreshold: h.initialThreshold,
		Collections:      h.collections,
		TotalCollected:   h.totalCollected,
		AllocSize:        h.allocator.GetAllocSize(),
		Roots:            make([]Ref, 0),
		Objects:          make([]ObjectInfo, 0, h.liveCount),
	}
	if roots != nil {
		for i := 0; i < roots.Len(); i++ {
			s.Roots = append(s.Roots, roots.Get(i))
		}
	}
	h.For(func(ref Ref) (next bool) {
		obj := h.lookup(ref)
		info := ObjectInfo{
			Ref:  ref,
			Kind: obj.kind.String(),
		}
		if obj.kind == Pair {
			info.Head = obj.head
			info.Tail = obj.tail
		} else {
			info.Value = obj.value
		}
		s.Objects = append(s.Objects, info)
		return true
	})
	return s
}

// Reachable 从快照的根出发计算可达对象 与回收器的标记结果应一致
func (s *Snapshot) Reachable() map[Ref]bool {
	index := make(map[Ref]*ObjectInfo, len(s.Objects))
	for i := range s.Objects {
		index[s.Objects[i].Ref] = &s.Objects[i]
	}
	reached := make(map[Ref]bool)
	work := append([]Ref(nil), s.Roots...)
	for len(work) != 0 {
		ref := work[len(work)-1]
		work = work[:len(work)-1]
		if ref == Nil || reached[ref] {
			continue
		}
		info, exist := index[ref]
		if !exist {
			continue
		}
		reached[ref] = true
		work = append(work, info.Head, info.Tail)
	}
	return reached
}
