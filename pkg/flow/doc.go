// Package flow runs items through an ordered chain of named stages that
// announce their progress on a shared message bus.
//
// Common usage:
// - NewBuilder/AddStage/Build: assemble an Engine from stage factories
// - NewStage/StageFunc: wrap a transform so it publishes "<name>:start" and "<name>:end"
// - Engine.ProcessBatch: run a fixed slice of texts and collect the items in order
// - Engine.OpenChannel: feed texts one by one and read results as they come out
//
// Every stage is a single goroutine joined to its neighbours by unbuffered
// channels, so items stay in input order and a stage never works on two items
// at once. The first stage failure stops the run.
package flow
