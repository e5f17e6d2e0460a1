// Package core contains the channel plumbing the flow engine is assembled
// from: the locomotive loop that drives one stage, source and sink helpers,
// and run options carried through context. It knows nothing about items or
// the message bus.
package core
