// Package types defines the shared data structures and interfaces used
// across the tiercache engine: cache entries, per-tier and combined
// statistics, maintenance snapshots, and the Tier contract implemented by
// the memory and disk stores.
package types
