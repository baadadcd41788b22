// Package docstore defines the key-path document API every combat mutation
// is expressed in.
//
// Documents are JSON. A transition never writes a document wholesale during
// play; it emits field updates addressed by gjson/sjson paths and groups them
// in a Batch that a Store commits all-or-nothing.
package docstore
