// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package cache

import (
	"hash/fnv"
	"math"
	"math/bits"
	"sync"
	"time"
)

// BloomFilter is a probabilistic set membership filter.
//
//   - No false negatives: Test() == false means the key was never added.
//   - False positives possible: Test() == true needs verification.
//   - Keys cannot be removed.
//
// The ingest dedup path pairs it with an LRUCache: the filter
// short-circuits the common case (a never-seen event ID) and the LRU
// settles the rest exactly.
type BloomFilter struct {
	mu       sync.RWMutex
	bits     []uint64
	size     uint64 // number of bits
	hashFns  int
	count    int
	capacity int
}

// NewBloomFilter sizes a filter for expectedItems keys at the given
// false positive rate (0.01 means 1%).
func NewBloomFilter(expectedItems int, falsePositiveRate float64) *BloomFilter {
	if expectedItems <= 0 {
		expectedItems = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	// m = -n*ln(p)/ln(2)^2 bits, k = (m/n)*ln(2) hash functions
	ln2 := math.Ln2
	m := int(-float64(expectedItems) * math.Log(falsePositiveRate) / (ln2 * ln2))
	if m < 64 {
		m = 64
	}

	k := int(float64(m) / float64(expectedItems) * ln2)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10 // More hashing than this stops paying for itself
	}

	words := (m + 63) / 64

	return &BloomFilter{
		bits:     make([]uint64, words),
		size:     uint64(words * 64),
		hashFns:  k,
		capacity: expectedItems,
	}
}

// Add records a key in the filter.
func (bf *BloomFilter) Add(key string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	for _, h := range bf.hashes(key) {
		idx := h % bf.size
		bf.bits[idx/64] |= 1 << (idx % 64)
	}
	bf.count++
}

// Test reports whether a key might have been added. A false result is
// definitive; a true result may be a false positive.
func (bf *BloomFilter) Test(key string) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	for _, h := range bf.hashes(key) {
		idx := h % bf.size
		if bf.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// Clear resets the filter.
func (bf *BloomFilter) Clear() {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	for i := range bf.bits {
		bf.bits[i] = 0
	}
	bf.count = 0
}

// Count returns the number of Add calls, duplicate keys included.
func (bf *BloomFilter) Count() int {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.count
}

// Capacity returns the item count the filter was sized for.
func (bf *BloomFilter) Capacity() int {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.capacity
}

// FillRatio returns the fraction of bits currently set. Past roughly
// 0.5 the false positive rate degrades beyond the configured target.
func (bf *BloomFilter) FillRatio() float64 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	setBits := 0
	for _, word := range bf.bits {
		setBits += bits.OnesCount64(word)
	}
	return float64(setBits) / float64(bf.size)
}

// hashes derives hashFns hash values via double hashing: two FNV
// variants combined as h1 + i*h2, cheaper than k independent hashes.
func (bf *BloomFilter) hashes(key string) []uint64 {
	h1 := fnv.New64a()
	h1.Write([]byte(key))
	hash1 := h1.Sum64()

	h2 := fnv.New64()
	h2.Write([]byte(key))
	h2.Write([]byte{0xff}) // Salt so the variants diverge on short keys
	hash2 := h2.Sum64()

	hashes := make([]uint64, bf.hashFns)
	for i := 0; i < bf.hashFns; i++ {
		hashes[i] = hash1 + uint64(i)*hash2
	}
	return hashes
}

// BloomLRU layers a Bloom filter in front of an LRUCache for event ID
// deduplication. Most IDs are new; the filter rejects those in O(k)
// without touching the LRU. When the filter says "maybe", the LRU gives
// the exact answer, so a Bloom false positive can never drop an event.
// Only the LRU side expires; the filter saturates slowly and is rebuilt
// on Clear.
type BloomLRU struct {
	bloom *BloomFilter
	lru   *LRUCache
	mu    sync.RWMutex

	bloomNegatives int64 // Definitely-new fast path hits
	lruChecks      int64 // Keys that needed LRU verification
	duplicates     int64 // Confirmed duplicates
}

// NewBloomLRU creates the combined dedup cache. capacity and ttl apply
// to the LRU side; falsePositiveRate sizes the filter.
func NewBloomLRU(capacity int, ttl time.Duration, falsePositiveRate float64) *BloomLRU {
	return &BloomLRU{
		bloom: NewBloomFilter(capacity, falsePositiveRate),
		lru:   NewLRUCache(capacity, ttl),
	}
}

// IsDuplicate reports whether key was seen within the TTL window and
// records it if not.
func (bl *BloomLRU) IsDuplicate(key string) bool {
	if !bl.bloom.Test(key) {
		bl.mu.Lock()
		bl.bloomNegatives++
		bl.mu.Unlock()

		bl.bloom.Add(key)
		bl.lru.Add(key, time.Now())
		return false
	}

	bl.mu.Lock()
	bl.lruChecks++
	bl.mu.Unlock()

	if bl.lru.IsDuplicate(key) {
		bl.mu.Lock()
		bl.duplicates++
		bl.mu.Unlock()
		return true
	}

	// Bloom false positive or expired LRU entry; key is recorded again
	bl.bloom.Add(key)
	return false
}

// Record marks a key as seen without a duplicate check.
func (bl *BloomLRU) Record(key string) {
	bl.bloom.Add(key)
	bl.lru.Add(key, time.Now())
}

// Contains reports whether key is present, without modifying anything.
func (bl *BloomLRU) Contains(key string) bool {
	if !bl.bloom.Test(key) {
		return false
	}
	return bl.lru.Contains(key)
}

// CleanupExpired evicts expired LRU entries. The Bloom filter keeps its
// bits; expired keys simply fall through to the LRU check again.
func (bl *BloomLRU) CleanupExpired() int {
	return bl.lru.CleanupExpired()
}

// Clear resets the filter, the LRU, and the counters.
func (bl *BloomLRU) Clear() {
	bl.bloom.Clear()
	bl.lru.Clear()

	bl.mu.Lock()
	bl.bloomNegatives = 0
	bl.lruChecks = 0
	bl.duplicates = 0
	bl.mu.Unlock()
}

// Stats returns fast-path, verification, and duplicate counters plus
// the LRU size.
func (bl *BloomLRU) Stats() (bloomNegatives, lruChecks, duplicates int64, lruSize int) {
	bl.mu.RLock()
	defer bl.mu.RUnlock()

	return bl.bloomNegatives, bl.lruChecks, bl.duplicates, bl.lru.Len()
}

// Len returns the number of entries on the LRU side.
func (bl *BloomLRU) Len() int {
	return bl.lru.Len()
}
