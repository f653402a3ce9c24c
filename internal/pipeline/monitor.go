package pipeline

import (
	"runtime"
)

// MemStats is the process footprint reported by GET /health. CPUs bounds the
// default number of row workers.
type MemStats struct {
	HeapInUseBytes  uint64 `json:"heap_in_use_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	Goroutines      int    `json:"goroutines"`
	CPUs            int    `json:"cpus"`
}

// GetMemStats reads the current runtime statistics.
func GetMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemStats{
		HeapInUseBytes:  m.HeapInuse,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		Goroutines:      runtime.NumGoroutine(),
		CPUs:            runtime.NumCPU(),
	}
}
