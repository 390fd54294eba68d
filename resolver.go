package yoyo

import "github.com/pkg/errors"

// Operation selects what the resolver plans and the executor performs.
type Operation int

const (
	OpApply = Operation(iota)
	OpRollback
	OpReapply
	OpMark
	OpUnmark
)

func (op Operation) String() string {
	switch op {
	case OpApply:
		return "apply"
	case OpRollback:
		return "rollback"
	case OpReapply:
		return "reapply"
	case OpMark:
		return "mark"
	case OpUnmark:
		return "unmark"
	}
	return "unknown"
}

// PlanItem is one migration scheduled in a given direction. MarkOnly items
// mutate the applied-set without running step bodies.
type PlanItem struct {
	Migration *Migration
	Direction Direction
	MarkOnly  bool
}

// Plan is the ordered sequence of plan items the executor runs.
type Plan []PlanItem

// Resolve produces the plan for the requested operation against the current
// applied-set, optionally narrowed to a target identity and its transitive
// closure. The second return value lists applied identities without sources
// that were skipped under force.
func Resolve(list *MigrationList, applied []string, op Operation, target string, force bool) (Plan, []string, error) {
	for _, m := range list.Items() {
		for _, dep := range m.Depends {
			if list.Get(dep) == nil {
				return nil, nil, &UnknownDependencyError{ID: m.ID, Depends: dep}
			}
		}
	}

	order, err := topologicalSort(list.Items())
	if err != nil {
		return nil, nil, err
	}

	appliedSet := make(map[string]bool, len(applied))
	var stale []string
	for _, id := range applied {
		appliedSet[id] = true
		if list.Get(id) == nil {
			stale = append(stale, id)
		}
	}

	if target != "" && list.Get(target) == nil {
		return nil, nil, &MissingTargetError{Target: target}
	}

	// An untargeted rollback covers the whole applied-set, so applied
	// identities with no source make it unsatisfiable.
	var skipped []string
	if (op == OpRollback || op == OpUnmark || op == OpReapply) && target == "" && len(stale) > 0 {
		if !force {
			return nil, nil, &StaleMigrationError{IDs: stale}
		}
		skipped = stale
	}

	inForwardSelection := func(m *Migration) bool {
		if target == "" {
			return true
		}
		return m.ID == target || ancestors(target, list)[m.ID]
	}
	inBackwardSelection := func(m *Migration) bool {
		if target == "" {
			return true
		}
		return m.ID == target || descendants(target, list)[m.ID]
	}

	var plan Plan
	forward := func(markOnly bool, include func(*Migration) bool) {
		for _, m := range order {
			if include(m) {
				plan = append(plan, PlanItem{Migration: m, Direction: DirectionForward, MarkOnly: markOnly})
			}
		}
	}
	backward := func(markOnly bool, include func(*Migration) bool) {
		for i := len(order) - 1; i >= 0; i-- {
			if include(order[i]) {
				plan = append(plan, PlanItem{Migration: order[i], Direction: DirectionBackward, MarkOnly: markOnly})
			}
		}
	}

	switch op {
	case OpApply, OpMark:
		forward(op == OpMark, func(m *Migration) bool {
			return !appliedSet[m.ID] && inForwardSelection(m)
		})
	case OpRollback, OpUnmark:
		backward(op == OpUnmark, func(m *Migration) bool {
			return appliedSet[m.ID] && inBackwardSelection(m)
		})
	case OpReapply:
		include := func(m *Migration) bool {
			return appliedSet[m.ID] && inBackwardSelection(m)
		}
		backward(false, include)
		forward(false, include)
	default:
		return nil, nil, errors.Errorf("unknown operation %d", op)
	}

	return plan, skipped, nil
}
