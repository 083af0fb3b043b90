// Package session defines the persisted record of a detection run and the
// SQLite store that holds it. A session is written once, after the run
// reaches a terminal status, together with its consolidated duplicate
// groups; stored sessions are never modified.
package session
