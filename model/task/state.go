package task

// State identifies the lifecycle stage of a task. A task's state is stored
// solely as the vault folder that currently holds its file - there is no
// separate status field that could diverge from location.
type State string

const (
	// StateNeedsAction holds freshly detected tasks that nobody classified yet.
	StateNeedsAction State = "NeedsAction"

	// StatePendingApproval holds tasks waiting for a human decision.
	StatePendingApproval State = "PendingApproval"

	// StateApproved holds tasks cleared for execution.
	StateApproved State = "Approved"

	// StateRejected holds tasks a decision turned down. Terminal.
	StateRejected State = "Rejected"

	// StateDone holds successfully executed tasks. Terminal.
	StateDone State = "Done"

	// StateFailed holds tasks whose execution failed. A transient failure may
	// later be reconciled to StateDone once its queued operation replays.
	StateFailed State = "Failed"
)

// Folder returns the vault folder name backing the state.
func (s State) Folder() string {
	switch s {
	case StateNeedsAction:
		return "Needs_Action"
	case StatePendingApproval:
		return "Pending_Approval"
	default:
		return string(s)
	}
}

// States enumerates every lifecycle state in transition order.
func States() []State {
	return []State{
		StateNeedsAction,
		StatePendingApproval,
		StateApproved,
		StateRejected,
		StateDone,
		StateFailed,
	}
}

// IsTerminal reports whether no further transition is expected. StateFailed is
// not terminal: replay reconciliation may still move it to StateDone.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateRejected
}

// transitions captures the monotone lifecycle relation.
var transitions = map[State][]State{
	StateNeedsAction:     {StatePendingApproval, StateApproved, StateRejected},
	StatePendingApproval: {StateApproved, StateRejected},
	StateApproved:        {StateDone, StateFailed},
	StateFailed:          {StateDone},
}

// CanTransition reports whether moving a task from -> to is a legal lifecycle
// step.
func CanTransition(from, to State) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
