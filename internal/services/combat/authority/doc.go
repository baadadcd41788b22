// Package authority routes combat mutations to the single participant that
// holds write authority over the shared session.
//
// The authority executes commands through the engine handler. Every other
// participant emits the command over a Channel and leaves local state alone;
// the authority's OnMessage handler runs the same engine path and answers
// with an Ack. Redelivered messages are absorbed twice over: the engine treats
// round and turn commands issued against a stale position as already applied,
// and the relay remembers recently handled request IDs.
package authority
