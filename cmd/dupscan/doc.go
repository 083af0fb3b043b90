// Command dupscan scans directory trees for duplicate files and manages
// the stored detection sessions.
package main
