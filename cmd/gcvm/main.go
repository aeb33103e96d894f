// gcvm CLI - runs the collector scenarios and inspects heap dumps
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/flswld/gcvm/config"
	"github.com/flswld/gcvm/logger"
	"github.com/flswld/gcvm/mem"
	"github.com/flswld/gcvm/vm"
)

func main() {
	configPath := flag.String("config", "", "Path to gcvm.toml")
	runList := flag.String("run", "all", "Comma separated scenarios to run, or 'all'")
	dumpPath := flag.String("dump", "", "Write a CBOR heap dump of the last scenario before teardown")
	inspectPath := flag.String("inspect", "", "Print a CBOR heap dump as JSON and exit")
	list := flag.Bool("list", false, "List scenarios and exit")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gcvm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs mark/sweep collector scenarios on a toy VM.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gcvm                            # Run every scenario\n")
		fmt.Fprintf(os.Stderr, "  gcvm -run nested,cycle -v       # Run two scenarios with debug logs\n")
		fmt.Fprintf(os.Stderr, "  gcvm -run cycle -dump heap.cbor # Dump the heap left by a scenario\n")
		fmt.Fprintf(os.Stderr, "  gcvm -inspect heap.cbor         # Show a dump\n")
	}
	flag.Parse()

	if *list {
		for _, s := range vm.Scenarios {
			fmt.Printf("%-10s %s (expect %d live)\n", s.Name, s.Description, s.Expected)
		}
		return
	}

	if *inspectPath != "" {
		if err := inspect(*inspectPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *verbose {
		cfg.Log.Level = "DEBUG"
	}
	logger.InitLogger(cfg.LoggerConfig("gcvm"))

	scenarios, err := selectScenarios(*runList)
	if err != nil {
		logger.CloseLogger()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for i, s := range scenarios {
		dump := ""
		if i == len(scenarios)-1 {
			dump = *dumpPath
		}
		ok, err := runOne(cfg, s, dump)
		if err != nil {
			logger.Error("scenario %s: %v", s.Name, err)
			failed++
			continue
		}
		if !ok {
			failed++
		}
	}
	logger.CloseLogger()
	if failed != 0 {
		fmt.Fprintf(os.Stderr, "%d of %d scenarios failed\n", failed, len(scenarios))
		os.Exit(1)
	}
}

func selectScenarios(runList string) ([]*vm.Scenario, error) {
	if runList == "" || runList == "all" {
		return vm.Scenarios, nil
	}
	scenarios := make([]*vm.Scenario, 0)
	for _, name := range strings.Split(runList, ",") {
		name = strings.TrimSpace(name)
		s, ok := vm.FindScenario(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func runOne(cfg *config.Config, s *vm.Scenario, dumpPath string) (bool, error) {
	allocator, err := cfg.NewAllocator()
	if err != nil {
		return false, err
	}
	v, err := vm.New(allocator, &cfg.VM)
	if err != nil {
		return false, err
	}
	result, runErr := vm.RunScenario(v, s)
	if runErr == nil && dumpPath != "" {
		runErr = writeDump(v, dumpPath)
	}
	if _, err := v.Teardown(); err != nil && runErr == nil {
		runErr = err
	}
	if tracking, ok := allocator.(*mem.TrackingAllocator); ok {
		if err := tracking.CheckLeaks(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return false, runErr
	}
	fmt.Println(result)
	return result.Passed(), nil
}

func writeDump(v *vm.VM, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = v.DumpHeap(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func inspect(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := vm.ReadHeapDump(f)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	fmt.Printf("reachable from roots: %d of %d\n", len(snap.Reachable()), len(snap.Objects))
	return nil
}
