// Package sqlite persists combat documents in SQLite. Every batch commits in
// one transaction, so a round advance touching the session and all of its
// actors lands whole or not at all.
package sqlite
