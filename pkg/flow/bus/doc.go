// Package bus provides the in-process message bus shared by the stages of one
// flow engine.
//
// Delivery is deferred and batched:
// - Dispatch only enqueues; a flush task delivers the queue later, in enqueue order
// - events dispatched while a flush runs go to the next flush
// - the queue is bounded, the oldest pending entry is dropped on overflow
// - WaitFor gives a one-shot wait with a timeout
//
// Handler panics are recovered and counted so that one bad subscriber does not
// stop delivery to the others.
package bus
