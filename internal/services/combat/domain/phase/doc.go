// Package phase is the combat state machine.
//
// A session moves NotStarted -> RoundActive -> RoundEnding -> RoundActive ...
// -> Ended. Every transition, and every actor rule that runs inside combat,
// is a command decided by Decider.Decide against loaded State. The decider
// stages changes on copies and returns them as a single batch, so a round
// advance (budgets, edge counters, pass reduction, newcomer rolls, reorder,
// action phase) commits or fails as one unit.
//
// Redelivered commands are absorbed by state, not by message bookkeeping:
// round and turn commands carry the round/turn they were issued against and
// become accepted no-ops once persisted state has moved on.
package phase
