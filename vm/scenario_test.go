package vm

import (
	"testing"
)

func TestScenarios(t *testing.T) {
	for _, s := range Scenarios {
		t.Run(s.Name, func(t *testing.T) {
			v, _ := newTestVM(t, nil)
			result, err := RunScenario(v, s)
			if err != nil {
				t.Fatal(err)
			}
			if !result.Passed() {
				t.Fatalf("%s", result)
			}
			if err := v.Heap().Verify(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestFindScenario(t *testing.T) {
	s, ok := FindScenario("cycle")
	if !ok || s.Expected != 4 {
		t.Fatalf("find cycle: %v %v", s, ok)
	}
	if _, ok := FindScenario("missing"); ok {
		t.Fatal("found missing scenario")
	}
}

func TestPerfScenarioCollectsAutomatically(t *testing.T) {
	v, _ := newTestVM(t, &Config{InitialThreshold: 8})
	s, _ := FindScenario("perf")
	result, err := RunScenario(v, s)
	if err != nil {
		t.Fatal(err)
	}
	if result.Collections < 2 || result.Collected != 20000 {
		t.Fatalf("%s", result)
	}
}
