package pipeline

import "fmt"

type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() string  { return e.code }

var (
	// ErrRecordNotFound reports a press on a stage that was already resolved.
	ErrRecordNotFound error = &codedError{"RECORD_NOT_FOUND", "pipeline: record not found"}
	// ErrInvalidTransition reports an event that is not valid from the order's stage.
	ErrInvalidTransition error = &codedError{"INVALID_TRANSITION", "pipeline: invalid transition"}
	// ErrItemNotFound reports an unknown SKU on submission.
	ErrItemNotFound error = &codedError{"ITEM_NOT_FOUND", "pipeline: item not found"}
)

// NotFoundError names the stage table a lookup missed.
type NotFoundError struct {
	Stage Stage
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pipeline: no %s record for %s", e.Stage, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrRecordNotFound }
func (e *NotFoundError) Code() string          { return "RECORD_NOT_FOUND" }

// TransitionError is returned for events missing from the transition table.
type TransitionError struct {
	From  Stage
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("pipeline: %s is not allowed from %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
func (e *TransitionError) Code() string          { return "INVALID_TRANSITION" }
