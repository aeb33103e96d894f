package list

import (
	"encoding/json"
	"testing"

	"github.com/flswld/gcvm/mem"
)

func TestArrayList(t *testing.T) {
	allocator := mem.NewTrackingAllocator(nil)
	arrayList, err := NewArrayList[uint64](allocator)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if err := arrayList.Add(uint64(i)); err != nil {
			t.Fatal(err)
		}
	}
	arrayList.Set(10, 666)
	arrayList.For(func(index int, value uint64) (next bool) {
		want := uint64(index)
		if index == 10 {
			want = 666
		}
		if value != want {
			t.Errorf("index: %d, value: %d, want: %d", index, value, want)
		}
		return true
	})
	if arrayList.Cap() != 128 {
		t.Fatalf("cap: got %d, want 128", arrayList.Cap())
	}
	arrayList.Free()
	if err := allocator.CheckLeaks(); err != nil {
		t.Fatal(err)
	}
}

func TestArrayListPop(t *testing.T) {
	arrayList, err := NewArrayList[uint32](mem.NewGoAllocator())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := arrayList.Pop(); ok {
		t.Fatal("pop from empty list succeeded")
	}
	_ = arrayList.Add(1)
	_ = arrayList.Add(2)
	_ = arrayList.Add(3)
	v, ok := arrayList.Pop()
	if !ok || v != 3 {
		t.Fatalf("pop: got %d %v", v, ok)
	}
	arrayList.Truncate(0)
	if arrayList.Len() != 0 {
		t.Fatalf("len after truncate: %d", arrayList.Len())
	}
	if arrayList.Get(0) != 0 {
		t.Fatal("get out of range returned non zero")
	}
}

func TestArrayListGrowFail(t *testing.T) {
	allocator := mem.NewTrackingAllocator(nil)
	allocator.Limit = 1
	arrayList, err := NewArrayList[uint32](allocator)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		if err := arrayList.Add(uint32(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := arrayList.Add(8); err != ErrAllocFail {
		t.Fatalf("expected ErrAllocFail, got %v", err)
	}
	if arrayList.Len() != 8 || arrayList.Get(7) != 7 {
		t.Fatal("list changed by failed add")
	}
	arrayList.Free()
	if err := allocator.CheckLeaks(); err != nil {
		t.Fatal(err)
	}
}

func TestArrayListZeroValue(t *testing.T) {
	var arrayList ArrayList[int32]
	if err := json.Unmarshal([]byte("[1,2]"), &arrayList); err != ErrAllocFail {
		t.Fatalf("expected ErrAllocFail, got %v", err)
	}
	if err := arrayList.Add(1); err != ErrAllocFail {
		t.Fatalf("expected ErrAllocFail, got %v", err)
	}
	if arrayList.Len() != 0 {
		t.Fatalf("len: %d", arrayList.Len())
	}
}

func TestArrayListJSON(t *testing.T) {
	arrayList, _ := NewArrayList[int32](mem.NewGoAllocator())
	_ = arrayList.Add(-1)
	_ = arrayList.Add(5)
	data, err := json.Marshal(arrayList)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[-1,5]" {
		t.Fatalf("marshal: got %s", data)
	}
	other, _ := NewArrayList[int32](mem.NewGoAllocator())
	if err := json.Unmarshal(data, other); err != nil {
		t.Fatal(err)
	}
	if other.Len() != 2 || other.Get(1) != 5 {
		t.Fatal("unmarshal mismatch")
	}
}
