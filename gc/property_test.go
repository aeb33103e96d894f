package gc

import (
	"math/rand"
	"testing"
)

// Property: after any sequence of mutations, a collection keeps exactly the
// objects reachable from the roots
func TestPropertyCollectKeepsReachable(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		h := newTestHeap(t, nil, uint32(rng.Intn(16)+1))
		roots := make(RefSlice, 0)

		for step := 0; step < 300; step++ {
			switch op := rng.Intn(10); {
			case op < 3:
				ref, err := h.AllocScalar(rng.Int63(), roots)
				if err != nil {
					t.Fatalf("seed %d step %d: %v", seed, step, err)
				}
				roots = append(roots, ref)
			case op < 5 && len(roots) >= 2:
				head := roots[rng.Intn(len(roots))]
				tail := roots[rng.Intn(len(roots))]
				ref, err := h.AllocPair(head, tail, roots)
				if err != nil {
					t.Fatalf("seed %d step %d: %v", seed, step, err)
				}
				roots = append(roots, ref)
			case op < 7 && len(roots) != 0:
				i := rng.Intn(len(roots))
				roots = append(roots[:i], roots[i+1:]...)
			case op < 8 && len(roots) >= 2:
				pair := roots[rng.Intn(len(roots))]
				if kind, _ := h.Kind(pair); kind == Pair {
					_ = h.SetTail(pair, roots[rng.Intn(len(roots))])
				}
			default:
				reach := h.Snapshot(roots).Reachable()
				before := h.LiveObjectCount()
				stats := h.Collect(roots)
				if int(h.LiveObjectCount()) != len(reach) {
					t.Fatalf("seed %d step %d: live %d, reachable %d", seed, step, h.LiveObjectCount(), len(reach))
				}
				if stats.Collected != before-h.LiveObjectCount() {
					t.Fatalf("seed %d step %d: stats %+v, live %d -> %d", seed, step, stats, before, h.LiveObjectCount())
				}
				for ref := range reach {
					if !h.Contains(ref) {
						t.Fatalf("seed %d step %d: reachable object %d reclaimed", seed, step, ref)
					}
				}
			}
			if err := h.Verify(); err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
		}
	}
}

// Property: a second collection with the same roots never reclaims anything
func TestPropertyCollectIdempotent(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		h := newTestHeap(t, nil, 1<<20)
		all := make(RefSlice, 0)
		for i := 0; i < 200; i++ {
			var ref Ref
			var err error
			if len(all) >= 2 && rng.Intn(2) == 0 {
				ref, err = h.AllocPair(all[rng.Intn(len(all))], all[rng.Intn(len(all))], all)
			} else {
				ref, err = h.AllocScalar(int64(i), all)
			}
			if err != nil {
				t.Fatal(err)
			}
			all = append(all, ref)
		}
		roots := make(RefSlice, 0)
		for _, ref := range all {
			if rng.Intn(5) == 0 {
				roots = append(roots, ref)
			}
		}
		h.Collect(roots)
		live := h.LiveObjectCount()
		stats := h.Collect(roots)
		if stats.Collected != 0 || h.LiveObjectCount() != live {
			t.Fatalf("seed %d: second collection reclaimed %d", seed, stats.Collected)
		}
	}
}
