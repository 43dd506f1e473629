package gate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekeeper/pkg/statemachine"
)

// Outcome is a state in the lifecycle of one execution.
type Outcome = statemachine.StringState

const (
	OutcomeIdle              Outcome = "idle"
	OutcomeAdmitted          Outcome = "admitted"
	OutcomeRunning           Outcome = "running"
	OutcomeCompleted         Outcome = "completed"
	OutcomeRejectedAtGate    Outcome = "rejected_at_gate"
	OutcomeRejectedByTimeout Outcome = "rejected_by_timeout"
	OutcomeFaulted           Outcome = "faulted"
	OutcomeCancelled         Outcome = "cancelled"
)

const (
	eventAdmit    = statemachine.StringEvent("admit")
	eventReject   = statemachine.StringEvent("reject")
	eventCancel   = statemachine.StringEvent("cancel")
	eventStart    = statemachine.StringEvent("start")
	eventComplete = statemachine.StringEvent("complete")
	eventTimeout  = statemachine.StringEvent("timeout")
	eventFault    = statemachine.StringEvent("fault")
)

// lifecycle is shared by all executions; each one walks its own Machine.
var lifecycle = statemachine.MustNewTable(OutcomeIdle,
	statemachine.Transition{From: OutcomeIdle, To: OutcomeAdmitted, Event: eventAdmit},
	statemachine.Transition{From: OutcomeIdle, To: OutcomeRejectedAtGate, Event: eventReject},
	statemachine.Transition{From: OutcomeIdle, To: OutcomeCancelled, Event: eventCancel},
	statemachine.Transition{From: OutcomeAdmitted, To: OutcomeRunning, Event: eventStart},
	statemachine.Transition{From: OutcomeRunning, To: OutcomeCompleted, Event: eventComplete},
	statemachine.Transition{From: OutcomeRunning, To: OutcomeRejectedByTimeout, Event: eventTimeout},
	statemachine.Transition{From: OutcomeRunning, To: OutcomeFaulted, Event: eventFault},
	statemachine.Transition{From: OutcomeRunning, To: OutcomeCancelled, Event: eventCancel},
)

// execution is the per-call record. It is confined to the calling goroutine;
// the detached action of a pessimistic run never touches it.
type execution struct {
	id      string
	scope   Scope
	size    float64
	started time.Time
	machine *statemachine.Machine
}

func newExecution(scope Scope, defaultSize float64) *execution {
	size := scope.Size
	if size == 0 {
		size = defaultSize
	}
	return &execution{
		id:      uuid.NewString(),
		scope:   scope,
		size:    size,
		started: time.Now(),
		machine: lifecycle.Start(),
	}
}

func (ex *execution) fire(ev statemachine.StringEvent) {
	if err := ex.machine.Fire(ev); err != nil {
		panic(fmt.Sprintf("gate: execution %s: %v", ex.id, err))
	}
}

func (ex *execution) outcome() Outcome {
	return ex.machine.Current().(Outcome)
}
