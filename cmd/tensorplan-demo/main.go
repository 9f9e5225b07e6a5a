// Command tensorplan-demo plans memory for a recorded allocation
// trace and prints the resulting arena layout. It generates a small
// canned trace on first run if the given path doesn't exist yet, so
// it can be tried with no setup; --watch re-plans every time the
// trace file on disk changes, the way a developer iterating on a
// model dump would want without re-invoking the binary by hand.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"tensorplan"
	"tensorplan/graphir"
	"tensorplan/internal/arena"
	"tensorplan/internal/demoir"
	"tensorplan/internal/record"
)

func main() {
	tracePath := flag.String("trace", "trace.bin", "path to a MemEvent trace file (a canned one is written here if missing)")
	strategyName := flag.String("strategy", "linear-scan", "naive | linear-scan | greedy-by-size")
	watch := flag.Bool("watch", false, "re-plan every time the trace file changes")
	flag.Parse()

	strategy, err := parseStrategy(*strategyName)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(*tracePath, strategy); err != nil {
		log.Fatal(err)
	}
	if !*watch {
		return
	}

	if err := watchAndRerun(*tracePath, strategy); err != nil {
		log.Fatal(err)
	}
}

func parseStrategy(name string) (tensorplan.Strategy, error) {
	switch name {
	case "naive":
		return tensorplan.Naive, nil
	case "linear-scan":
		return tensorplan.LinearScan, nil
	case "greedy-by-size":
		return tensorplan.GreedyBySize, nil
	default:
		return 0, fmt.Errorf("tensorplan-demo: unknown strategy %q (trace mode cannot run greedy-by-breadth)", name)
	}
}

func run(tracePath string, strategy tensorplan.Strategy) error {
	events, err := loadOrCreateTrace(tracePath)
	if err != nil {
		return err
	}

	g := buildGraphFor(events)
	if err := tensorplan.PlanMemoryFromTrace(g, events, strategy); err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	printPlan(g)
	return nil
}

// loadOrCreateTrace reads an encoded trace from path, writing a small
// canned one first if the file doesn't exist.
func loadOrCreateTrace(path string) ([]arena.MemEvent, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		events := cannedTrace()
		if err := os.WriteFile(path, record.EncodeTrace(events), 0644); err != nil {
			return nil, fmt.Errorf("writing canned trace: %w", err)
		}
		return events, nil
	}
	if err != nil {
		return nil, err
	}
	return record.DecodeTrace(data)
}

func cannedTrace() []arena.MemEvent {
	return []arena.MemEvent{
		{Time: 0, PtrAddr: "0x1000", NodeSchema: "aten::conv2d", NodeHeader: "aten::conv2d.out", Size: 128, Kind: arena.Allocate},
		{Time: 1, PtrAddr: "0x2000", NodeSchema: "aten::relu", NodeHeader: "aten::relu.out", Size: 64, Kind: arena.Allocate},
		{Time: 4, PtrAddr: "0x2000", NodeSchema: "aten::relu", NodeHeader: "aten::relu.out", Size: 64, Kind: arena.Free},
		{Time: 5, PtrAddr: "0x1000", NodeSchema: "aten::conv2d", NodeHeader: "aten::conv2d.out", Size: 128, Kind: arena.Free},
	}
}

// buildGraphFor constructs a demo graph with one node per distinct
// frame header in the trace, in order of first appearance, so the
// trace-mode materializer's cursor has something to match against.
func buildGraphFor(events []arena.MemEvent) *demoir.Graph {
	g := demoir.New(graphir.DeviceHost)
	seen := make(map[string]bool)
	for _, ev := range events {
		if ev.Kind != arena.Allocate || seen[ev.NodeHeader] {
			continue
		}
		seen[ev.NodeHeader] = true
		g.AddNode(graphir.NodeKind(ev.NodeSchema), ev.NodeHeader)
	}
	return g
}

func printPlan(g *demoir.Graph) {
	for _, n := range g.Dump() {
		switch n.Kind() {
		case graphir.KindAllocateStorage:
			total, _ := n.IntAttr(graphir.AttrTotalSize)
			fmt.Printf("AllocateStorage total_size=%d\n", total)
		case graphir.KindPreAllocateTensor:
			size, _ := n.IntAttr(graphir.AttrSize)
			offset, _ := n.IntAttr(graphir.AttrOffset)
			fmt.Printf("PreAllocateTensor offset=%d size=%d\n", offset, size)
		default:
			fmt.Printf("%s %s\n", n.Kind(), n.CanonicalSchemaString())
		}
	}
}

// watchAndRerun re-invokes run every time tracePath changes on disk,
// until the process is killed.
func watchAndRerun(tracePath string, strategy tensorplan.Strategy) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(tracePath)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", tracePath)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(tracePath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Println("--- trace changed, re-planning ---")
			if err := run(tracePath, strategy); err != nil {
				fmt.Fprintln(os.Stderr, "plan:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch:", err)
		}
	}
}
