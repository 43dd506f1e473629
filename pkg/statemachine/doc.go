// Package statemachine provides a minimal finite-state-machine for tracking
// short-lived, single-pass lifecycles such as one guarded execution.
//
// The package revolves around two minimal interfaces, State and Event, with
// ready-made StringState and StringEvent helpers. A Table holds the immutable
// transitions and is built once; every run starts its own Machine from it,
// so a Table can be shared across goroutines while each Machine stays
// confined to the goroutine driving the run.
//
// # Usage
//
//	const (
//	    Idle    = statemachine.StringState("idle")
//	    Running = statemachine.StringState("running")
//	    Done    = statemachine.StringState("done")
//	    Start   = statemachine.StringEvent("start")
//	    Finish  = statemachine.StringEvent("finish")
//	)
//
//	table := statemachine.MustNewTable(Idle,
//	    statemachine.Transition{From: Idle, To: Running, Event: Start},
//	    statemachine.Transition{From: Running, To: Done, Event: Finish},
//	)
//
//	m := table.Start()
//	_ = m.Fire(Start)
//	_ = m.Fire(Finish)
//	m.IsTerminal() // true
//
// # Error Handling
//
// Fire refuses undefined moves and moves that would re-enter a visited state:
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* ... */ }
//	if statemachine.IsStateReenteredError(err)        { /* ... */ }
package statemachine
