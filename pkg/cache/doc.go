/*
Package cache implements a three-tier cache engine with automatic promotion
and demotion, time-based expiry, cold-tier compression and approximate-match
lookup for near-duplicate keys.

# Architecture

	┌────────────────────────────────────┐
	│              Manager               │  ← public facade
	│   Get / Set / Clear / WarmCache    │
	│       Stats / Events / Stop        │
	└────────────────────────────────────┘
	        │ hot → warm → cold
	┌──────────────┐ ┌──────────────────┐
	│  hot (RAM)   │ │ warm (disk)      │
	│  LRU, count  │ │ bounded by bytes │
	│  bounded     │ │ uncompressed     │
	└──────────────┘ └──────────────────┘
	                 ┌──────────────────┐
	                 │ cold (disk)      │
	                 │ bounded by bytes │
	                 │ gzip compressed  │
	                 └──────────────────┘

Reads consult hot, warm, cold in order and return the first valid hit; a hit
in a lower tier promotes a copy into hot as a detached best-effort
operation. Writes always land in hot; when a tier runs over budget its least
recently used entries cascade down the chain, with entries above the
compression threshold compressed on their way into cold and everything else
discarded. Promotion-on-hit over per-tier LRU approximates a true multi-tier
LRU at O(1) per tier operation without global coordination.

A miss on every tier may still resolve through the similarity index: the
engine tracks the token sets of recent lookup keys and, above a configurable
Jaccard threshold, serves the value cached under a near-duplicate key. The
match is best effort and never chains through a second similarity lookup.

A background maintenance loop purges expired entries from the durable tiers,
rewrites their manifests atomically, and emits snapshots on the Events
channel. Runtime failures (corrupt payloads, disk errors) are absorbed as
soft misses and surface only in stats and logs; the one synchronous error is
ErrInvalidConfig at construction.
*/
package cache
