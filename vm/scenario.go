package vm

import (
	"fmt"
	"time"
)

type ScenarioResult struct {
	Name        string        // 场景名
	Live        uint32        // 最后一次回收后存活对象数
	Expected    uint32        // 期望的存活对象数
	Collections uint64        // 回收次数 包括自动回收
	Collected   uint64        // 累计回收对象数
	Duration    time.Duration // 耗时
}

func (r *ScenarioResult) Passed() bool {
	return r.Live == r.Expected
}

func (r *ScenarioResult) String() string {
	status := "ok"
	if !r.Passed() {
		status = "FAIL"
	}
	return fmt.Sprintf("%-10s %-4s live:%d expected:%d collections:%d collected:%d time:%v",
		r.Name, status, r.Live, r.Expected, r.Collections, r.Collected, r.Duration)
}

type Scenario struct {
	Name        string
	Description string
	Expected    uint32
	Run         func(v *VM) error
}

var Scenarios = []*Scenario{
	{
		Name:        "preserve",
		Description: "objects on the stack survive a collection",
		Expected:    2,
		Run: func(v *VM) error {
			return run(v.pushInts(1, 2), v.collect)
		},
	},
	{
		Name:        "unreached",
		Description: "objects popped off the stack are reclaimed",
		Expected:    0,
		Run: func(v *VM) error {
			return run(v.pushInts(1, 2), v.pop, v.pop, v.collect)
		},
	},
	{
		Name:        "nested",
		Description: "pairs keep their children reachable",
		Expected:    7,
		Run: func(v *VM) error {
			return run(v.pushInts(1, 2), v.pair, v.pushInts(3, 4), v.pair, v.pair, v.collect)
		},
	},
	{
		Name:        "cycle",
		Description: "two pairs pointing at each other survive and terminate marking",
		Expected:    4,
		Run: func(v *VM) error {
			err := run(v.pushInts(1, 2), v.pair, v.pushInts(3, 4), v.pair)
			if err != nil {
				return err
			}
			b, _ := v.Pop()
			a, _ := v.Peek()
			if err := v.heap.SetTail(a, b); err != nil {
				return err
			}
			if err := v.heap.SetTail(b, a); err != nil {
				return err
			}
			v.GC()
			return nil
		},
	},
	{
		Name:        "perf",
		Description: "1000 rounds of pushing and popping 20 integers",
		Expected:    0,
		Run: func(v *VM) error {
			for i := 0; i < 1000; i++ {
				for j := 0; j < 20; j++ {
					if _, err := v.PushInt(int64(i)); err != nil {
						return err
					}
				}
				for k := 0; k < 20; k++ {
					if _, err := v.Pop(); err != nil {
						return err
					}
				}
			}
			v.GC()
			return nil
		},
	},
}

func FindScenario(name string) (*Scenario, bool) {
	for _, s := range Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// RunScenario 在v上运行场景 不会销毁v
func RunScenario(v *VM, s *Scenario) (*ScenarioResult, error) {
	start := time.Now()
	err := s.Run(v)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	heap := v.Heap()
	result := &ScenarioResult{
		Name:        s.Name,
		Live:        heap.LiveObjectCount(),
		Expected:    s.Expected,
		Collections: heap.Collections(),
		Collected:   heap.TotalCollected(),
		Duration:    time.Since(start),
	}
	return result, nil
}

func run(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) pushInts(values ...int64) func() error {
	return func() error {
		for _, value := range values {
			if _, err := v.PushInt(value); err != nil {
				return err
			}
		}
		return nil
	}
}

func (v *VM) pop() error {
	_, err := v.Pop()
	return err
}

func (v *VM) pair() error {
	_, err := v.PushPair()
	return err
}

func (v *VM) collect() error {
	v.GC()
	return nil
}
