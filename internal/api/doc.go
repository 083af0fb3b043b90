// Package api is the operation layer the CLI calls into. Each function
// validates its request, opens the stores it needs, and composes the
// catalog, engine, and session packages into one user-visible action.
package api
