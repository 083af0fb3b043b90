// Package engine runs the enabled detectors over a catalog of file
// records, consolidates their raw groups, and writes the finished session.
// Detectors run concurrently and independently; one algorithm failing
// degrades the session instead of aborting the run.
package engine
