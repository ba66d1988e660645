// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package cache provides the in-memory caching and deduplication
structures used by the ingest pipeline and the API layer.

# Overview

Two concerns live here:

 1. Event deduplication. The NATS consumer remembers recently seen
    rating event IDs so JetStream redeliveries are dropped before they
    reach the database. BloomLRU serves this: a Bloom filter rejects
    never-seen IDs in O(k), and an exact LRU cache with TTL settles the
    rest. A Bloom false positive costs one LRU lookup, never a dropped
    event; the ratings table primary key remains the final backstop.

 2. Response caching. Cache is a plain TTL map used by the API handlers
    for neighbor and pair query responses. Similarity results only
    change when a run completes, so the run orchestrator calls Clear()
    at that point and the next queries repopulate from fresh results.

# Deduplication Usage

	dedup := cache.NewBloomLRU(65536, 10*time.Minute, 0.01)

	if dedup.IsDuplicate(event.EventID.String()) {
	    msg.Ack() // Seen within the TTL window
	    return
	}
	// First sighting; IsDuplicate recorded it

Check and record are atomic, so concurrent consumers cannot both treat
the same ID as fresh. CleanupExpired() reaps aged LRU entries; the
consumer runs it on a ticker at half the TTL.

# Response Cache Usage

	c := cache.New(5 * time.Minute)

	key := cache.GenerateKey("neighbors", params)
	if cached, ok := c.Get(key); ok {
	    writeJSON(w, http.StatusOK, cached)
	    return
	}

	result, err := db.TopNeighbors(ctx, params)
	...
	c.Set(key, result)

GenerateKey hashes the JSON form of the parameters, so arbitrary query
shapes collapse to fixed-size keys.

# Invalidation

Entries expire by TTL. On top of that, the run orchestrator invalidates
the whole response cache when a similarity run completes:

	func (r *Runner) onRunCompleted() {
	    r.cache.Clear()
	    r.hub.BroadcastRunCompleted(run)
	}

# Limitations

The response cache carries no size bound and no eviction policy beyond
TTL. Cached values are bounded query responses and a run completion
clears everything, so growth is naturally capped. The Bloom filter side
of BloomLRU never unsets bits; it is sized for the configured capacity
and reset only by Clear().

# See Also

  - internal/ingest: the consumer deduplicating through BloomLRU
  - internal/api: handlers caching query responses
  - internal/runner: cache invalidation on run completion
*/
package cache
