// Package wsrelay carries authority messages between participants over
// websocket connections.
//
// The authority runs a Server, which authenticates participants with a
// signed token and hands every frame to the handler registered through
// OnMessage. Participants use a Client as the relay's Emitter; it writes one
// message frame per request and waits for the matching ack frame, retrying
// with exponential backoff when the connection or the authority fails in a
// retryable way.
package wsrelay
