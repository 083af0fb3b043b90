// Package catalog walks directory trees and turns eligible files into the
// records the detectors consume: content hash, perceptual signature, and
// filesystem metadata. Per-file problems are collected, not fatal; a file
// that cannot be hashed or decoded still enters the catalog and is skipped
// by the detectors that need the missing field.
package catalog
