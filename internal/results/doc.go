// Package results consolidates raw detector output into final duplicate
// groups: it merges groups that share members, reconciles confidence across
// algorithms, ranks the survivors, selects a suggested original per group,
// and truncates oversized member lists.
//
// Consolidation is deterministic and idempotent: the same raw input always
// yields the same ranked group list, including group identifiers. It runs
// single-threaded per session because merge order matters for determinism.
package results
