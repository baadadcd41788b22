// Package command defines the serializable command envelope every combat
// transition travels in, whether it is executed locally by the authority or
// relayed from a participant.
//
// A command is decided against loaded state into a Decision: one batch of
// document updates, the outcome records observers render, and rejections.
// The same decider runs on both paths, so a relayed command cannot diverge
// from a local one.
package command
