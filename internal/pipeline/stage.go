package pipeline

// Stage is the position of an order in the approval pipeline.
type Stage string

const (
	StageNew              Stage = "new"
	StagePendingApproval  Stage = "pending_approval"
	StagePendingDispatch  Stage = "pending_dispatch"
	StageAwaitingReceipt  Stage = "awaiting_receipt"
	StageCompleted        Stage = "completed"
	StageCancelled        Stage = "cancelled"
	StageDispatchRejected Stage = "dispatch_rejected"
)

// Event is an action that moves an order between stages.
type Event string

const (
	EventSubmit         Event = "submit"
	EventIncrease       Event = "increase"
	EventApprove        Event = "approve"
	EventCancel         Event = "cancel"
	EventDispatch       Event = "dispatch"
	EventRejectDispatch Event = "reject_dispatch"
	EventConfirm        Event = "confirm"
)

var transitions = map[Stage]map[Event]Stage{
	StageNew: {
		EventSubmit: StagePendingApproval,
	},
	StagePendingApproval: {
		EventIncrease: StagePendingApproval,
		EventApprove:  StagePendingDispatch,
		EventCancel:   StageCancelled,
	},
	StagePendingDispatch: {
		EventDispatch:       StageAwaitingReceipt,
		EventRejectDispatch: StageDispatchRejected,
	},
	StageAwaitingReceipt: {
		EventConfirm: StageCompleted,
	},
}

// Next returns the stage ev leads to from the given stage.
func Next(from Stage, ev Event) (Stage, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", &TransitionError{From: from, Event: ev}
}

// Terminal reports whether no event leaves s.
func (s Stage) Terminal() bool {
	return len(transitions[s]) == 0
}
