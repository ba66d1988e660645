// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestBloomFilter_AddTest(t *testing.T) {
	bf := NewBloomFilter(1000, 0.01)

	bf.Add("evt-1")
	if !bf.Test("evt-1") {
		t.Error("Test() of added key = false")
	}
	if bf.Count() != 1 {
		t.Errorf("Count() = %d, want 1", bf.Count())
	}
	if bf.Capacity() != 1000 {
		t.Errorf("Capacity() = %d, want 1000", bf.Capacity())
	}
}

// TestBloomFilter_NoFalseNegatives verifies the core guarantee: every
// added key tests positive.
func TestBloomFilter_NoFalseNegatives(t *testing.T) {
	bf := NewBloomFilter(10000, 0.01)

	keys := make([]string, 1000)
	for i := range keys {
		keys[i] = fmt.Sprintf("event-%d", i)
		bf.Add(keys[i])
	}

	for _, key := range keys {
		if !bf.Test(key) {
			t.Fatalf("false negative for %q", key)
		}
	}
}

// TestBloomFilter_FalsePositiveRate verifies the observed FP rate stays
// in the neighborhood of the configured target.
func TestBloomFilter_FalsePositiveRate(t *testing.T) {
	bf := NewBloomFilter(10000, 0.01)

	for i := 0; i < 10000; i++ {
		bf.Add(fmt.Sprintf("seen-%d", i))
	}

	falsePositives := 0
	const probes = 10000
	for i := 0; i < probes; i++ {
		if bf.Test(fmt.Sprintf("unseen-%d", i)) {
			falsePositives++
		}
	}

	// Allow generous headroom over the 1% target to keep this stable
	rate := float64(falsePositives) / float64(probes)
	if rate > 0.05 {
		t.Errorf("false positive rate = %.4f, want < 0.05", rate)
	}
}

func TestBloomFilter_Defaults(t *testing.T) {
	bf := NewBloomFilter(0, -1)
	if bf.Capacity() != 10000 {
		t.Errorf("Capacity() = %d, want 10000 default", bf.Capacity())
	}
	if bf.hashFns < 1 || bf.hashFns > 10 {
		t.Errorf("hashFns = %d, want within [1,10]", bf.hashFns)
	}
}

func TestBloomFilter_Clear(t *testing.T) {
	bf := NewBloomFilter(1000, 0.01)

	for i := 0; i < 100; i++ {
		bf.Add(fmt.Sprintf("evt-%d", i))
	}
	bf.Clear()

	if bf.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", bf.Count())
	}
	if bf.FillRatio() != 0 {
		t.Errorf("FillRatio() after Clear = %f, want 0", bf.FillRatio())
	}
	if bf.Test("evt-1") {
		t.Error("cleared filter still tests positive")
	}
}

func TestBloomFilter_FillRatio(t *testing.T) {
	bf := NewBloomFilter(1000, 0.01)

	if bf.FillRatio() != 0 {
		t.Errorf("empty FillRatio() = %f, want 0", bf.FillRatio())
	}

	for i := 0; i < 500; i++ {
		bf.Add(fmt.Sprintf("evt-%d", i))
	}

	ratio := bf.FillRatio()
	if ratio <= 0 || ratio >= 1 {
		t.Errorf("FillRatio() = %f, want in (0,1)", ratio)
	}
}

func TestBloomFilter_Concurrent(t *testing.T) {
	bf := NewBloomFilter(10000, 0.01)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-evt-%d", g, i)
				bf.Add(key)
				if !bf.Test(key) {
					t.Errorf("false negative for %q under concurrency", key)
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestBloomLRU_IsDuplicate(t *testing.T) {
	bl := NewBloomLRU(1000, time.Minute, 0.01)

	if bl.IsDuplicate("evt-1") {
		t.Error("first sighting reported as duplicate")
	}
	if !bl.IsDuplicate("evt-1") {
		t.Error("second sighting not reported as duplicate")
	}
	if bl.IsDuplicate("evt-2") {
		t.Error("different key reported as duplicate")
	}
	if bl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", bl.Len())
	}
}

// TestBloomLRU_NeverFalseDrops verifies a fresh key is never reported
// as a duplicate, whatever the Bloom filter says. This is the property
// the ingest pipeline depends on.
func TestBloomLRU_NeverFalseDrops(t *testing.T) {
	// Deliberately undersized filter to force false positives
	bl := NewBloomLRU(10, time.Minute, 0.01)

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("evt-%d", i)
		if bl.IsDuplicate(key) {
			t.Fatalf("fresh key %q reported as duplicate", key)
		}
	}
}

func TestBloomLRU_Record(t *testing.T) {
	bl := NewBloomLRU(1000, time.Minute, 0.01)

	bl.Record("evt-1")
	if !bl.Contains("evt-1") {
		t.Error("recorded key not contained")
	}
	if !bl.IsDuplicate("evt-1") {
		t.Error("recorded key not reported as duplicate")
	}
}

func TestBloomLRU_Expiration(t *testing.T) {
	bl := NewBloomLRU(1000, 50*time.Millisecond, 0.01)

	if bl.IsDuplicate("evt-1") {
		t.Error("first sighting reported as duplicate")
	}

	time.Sleep(60 * time.Millisecond)

	// LRU entry expired; the Bloom filter still has the bits set, so
	// this takes the slow path but must come back fresh.
	if bl.IsDuplicate("evt-1") {
		t.Error("expired key reported as duplicate")
	}
}

func TestBloomLRU_Stats(t *testing.T) {
	bl := NewBloomLRU(1000, time.Minute, 0.01)

	bl.IsDuplicate("evt-1") // fast path, new
	bl.IsDuplicate("evt-1") // slow path, duplicate
	bl.IsDuplicate("evt-2") // fast path, new

	bloomNegatives, lruChecks, duplicates, lruSize := bl.Stats()
	if bloomNegatives != 2 {
		t.Errorf("bloomNegatives = %d, want 2", bloomNegatives)
	}
	if lruChecks != 1 {
		t.Errorf("lruChecks = %d, want 1", lruChecks)
	}
	if duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", duplicates)
	}
	if lruSize != 2 {
		t.Errorf("lruSize = %d, want 2", lruSize)
	}
}

func TestBloomLRU_CleanupExpired(t *testing.T) {
	bl := NewBloomLRU(1000, 50*time.Millisecond, 0.01)

	bl.Record("evt-1")
	bl.Record("evt-2")
	time.Sleep(60 * time.Millisecond)

	removed := bl.CleanupExpired()
	if removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if bl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", bl.Len())
	}
}

func TestBloomLRU_Clear(t *testing.T) {
	bl := NewBloomLRU(1000, time.Minute, 0.01)

	bl.IsDuplicate("evt-1")
	bl.IsDuplicate("evt-1")
	bl.Clear()

	if bl.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", bl.Len())
	}
	bloomNegatives, lruChecks, duplicates, _ := bl.Stats()
	if bloomNegatives != 0 || lruChecks != 0 || duplicates != 0 {
		t.Errorf("Stats() after Clear = (%d,%d,%d), want zeros",
			bloomNegatives, lruChecks, duplicates)
	}
	if bl.IsDuplicate("evt-1") {
		t.Error("cleared cache reported duplicate")
	}
}

func BenchmarkBloomFilter_Add(b *testing.B) {
	bf := NewBloomFilter(100000, 0.01)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bf.Add(fmt.Sprintf("evt-%d", i))
	}
}

func BenchmarkBloomFilter_Test(b *testing.B) {
	bf := NewBloomFilter(100000, 0.01)
	for i := 0; i < 100000; i++ {
		bf.Add(fmt.Sprintf("evt-%d", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bf.Test(fmt.Sprintf("evt-%d", i%200000))
	}
}

func BenchmarkBloomLRU_IsDuplicate(b *testing.B) {
	bl := NewBloomLRU(100000, time.Minute, 0.01)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bl.IsDuplicate(fmt.Sprintf("evt-%d", i%200000))
	}
}

// BenchmarkBloomLRU_FastPath measures unique-key throughput, the
// dominant case during normal ingest.
func BenchmarkBloomLRU_FastPath(b *testing.B) {
	bl := NewBloomLRU(1000000, time.Minute, 0.01)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bl.IsDuplicate(fmt.Sprintf("unique-evt-%d", i))
	}
}
