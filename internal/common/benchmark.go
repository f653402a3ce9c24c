package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats is the subset of runtime.MemStats reported by benchmarks.
type MemoryStats struct {
	Alloc         uint64
	TotalAlloc    uint64
	Sys           uint64
	Mallocs       uint64
	HeapObjects   uint64
	NumGC         uint32
	GCCPUFraction float64
}

// GetMemoryStats reads the current runtime memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:         m.Alloc,
		TotalAlloc:    m.TotalAlloc,
		Sys:           m.Sys,
		Mallocs:       m.Mallocs,
		HeapObjects:   m.HeapObjects,
		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.Alloc/1024, m.TotalAlloc/1024, m.Sys/1024, m.NumGC, m.GCCPUFraction*100)
}

// BenchmarkResult summarizes repeated scans of one input.
type BenchmarkResult struct {
	Name         string
	Duration     time.Duration
	Fastest      time.Duration
	Slowest      time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Barcodes     int
	Error        error
}

// Average returns the mean duration of one iteration.
func (br BenchmarkResult) Average() time.Duration {
	if br.Iterations <= 0 {
		return 0
	}
	return br.Duration / time.Duration(br.Iterations)
}

// AllocatedPerIteration returns the bytes allocated by one iteration on average.
func (br BenchmarkResult) AllocatedPerIteration() uint64 {
	if br.Iterations <= 0 || br.MemoryAfter.TotalAlloc < br.MemoryBefore.TotalAlloc {
		return 0
	}
	return (br.MemoryAfter.TotalAlloc - br.MemoryBefore.TotalAlloc) / uint64(br.Iterations) //nolint:gosec // positive
}

func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, min: %v, max: %v, total: %v, barcodes: %d, alloc/op: %d KB",
		br.Name, br.Iterations, br.Average(), br.Fastest, br.Slowest, br.Duration,
		br.Barcodes, br.AllocatedPerIteration()/1024)
}

// Measure runs fn iterations times and records timings and allocations. fn
// returns the number of barcodes found; the count from the last run is kept.
// The first error stops the run.
func Measure(name string, iterations int, fn func() (int, error)) BenchmarkResult {
	if iterations <= 0 {
		iterations = 1
	}
	res := BenchmarkResult{Name: name, MemoryBefore: GetMemoryStats()}
	for i := range iterations {
		timer := NewNamedTimer(name)
		n, err := fn()
		d := timer.Stop()
		if err != nil {
			res.Error = fmt.Errorf("iteration %d: %w", i+1, err)
			break
		}
		res.Iterations++
		res.Duration += d
		res.Barcodes = n
		if res.Fastest == 0 || d < res.Fastest {
			res.Fastest = d
		}
		if d > res.Slowest {
			res.Slowest = d
		}
	}
	res.MemoryAfter = GetMemoryStats()
	return res
}
