package plan

import (
	"fmt"
	"sort"
	"strings"

	"revcore/internal/errs"
)

// TopoSort returns task ids in an order that respects every declared
// dependency edge. Roots are visited in original plan order and each
// task's dependencies in sorted id order, so Planner output stays
// stable across runs for identical input. It returns an
// Invariant error if the dependency graph contains a cycle.
func TopoSort(p *ExecutionPlan) ([]string, error) {
	index := make(map[string]int, len(p.Tasks))
	for i, t := range p.Tasks {
		index[t.ID] = i
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(p.Tasks))
	order := make([]string, 0, len(p.Tasks))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return errs.New(errs.KindInvariant,
				fmt.Sprintf("dependency cycle detected: %s -> %s", strings.Join(path, " -> "), id),
				"break the cycle by removing one of the listed dependency edges",
				false)
		}
		color[id] = gray
		t := p.Tasks[index[id]]
		deps := append([]string(nil), t.Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := index[dep]; !ok {
				return errs.New(errs.KindInvariant,
					fmt.Sprintf("task %s declares dependency on unknown task %s", id, dep),
					"ensure every dependency id refers to a task present in the plan",
					false)
			}
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	ids := make([]string, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		ids = append(ids, t.ID)
	}
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id, []string{id}); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// Ready returns the ids of pending tasks whose dependencies have all
// completed or been skipped, in plan order. The orchestrator's
// dispatcher does not call it; it selects eligible tasks itself.
func Ready(p *ExecutionPlan) []string {
	completed := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.Status == StatusCompleted || t.Status == StatusSkipped {
			completed[t.ID] = true
		}
	}

	var ready []string
	for _, t := range p.Tasks {
		if t.Status != StatusPending {
			continue
		}
		satisfied := true
		for _, dep := range t.Dependencies {
			if !completed[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, t.ID)
		}
	}
	return ready
}

// IndependentGroup filters a set of ready task ids down to those that
// share no target path with one another: a task whose path is already
// claimed by an earlier id in the list is dropped. The orchestrator's
// dispatcher does not call it; it groups tasks itself.
func IndependentGroup(p *ExecutionPlan, ids []string) []string {
	var chosen []string
	claimed := map[string]bool{}
	for _, id := range ids {
		t := p.TaskByID(id)
		if t == nil {
			continue
		}
		conflict := false
		for _, path := range t.TargetPaths {
			if claimed[path] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		for _, path := range t.TargetPaths {
			claimed[path] = true
		}
		chosen = append(chosen, id)
	}
	return chosen
}
