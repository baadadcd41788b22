// Package engine runs combat commands end to end: validate, load the
// documents a decision reads, decide, commit the batch atomically, and hand
// the outcome records to presentation.
//
// Commands for one session are serialised; commands without a session are
// serialised per actor. The decider stays pure, so the same handler serves
// local commands and commands relayed from other participants.
package engine
