/*
Package tier implements the three cache levels used by the engine.

The hot tier (Memory) is an in-memory store bounded by entry count with
explicit LRU ordering over a doubly linked list and a key map. The warm and
cold tiers (Disk) are bounded by total physical size and keep one payload
file per entry plus a JSON manifest that is rewritten atomically.

Tiers are deliberately unaware of each other. Capacity enforcement is driven
from above: a tier only reports that it is over budget and surrenders its
least recently used entry through EvictOldest, so the owner can decide
whether the entry is demoted to the next level or discarded.

Every tier guards its own index with its own lock. Disk payload I/O happens
outside the index lock; the index is updated only after the I/O completed,
and read failures demote to soft misses rather than errors.
*/
package tier
