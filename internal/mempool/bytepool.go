// Package mempool pools the per-row sample buffers of the row scanner.
package mempool

import (
	"sync"
)

var uint8Pools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of 1024 so rows of similar width
// share buffers.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := uint8Pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]uint8, cls)
		return &buf
	}})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetUint8 retrieves a []uint8 buffer of length n from the pool. Contents are
// not zeroed. The caller must return it via PutUint8 when done.
func GetUint8(n int) []uint8 {
	n = max(n, 0)
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]uint8, n, cls)
	}
	bp, ok := p.Get().(*[]uint8)
	if !ok || cap(*bp) < cls {
		buf := make([]uint8, cls)
		bp = &buf
	}
	return (*bp)[:n]
}

// PutUint8 returns a buffer to the pool. It is safe to pass a nil slice.
// Buffers whose capacity is not a size class are dropped.
func PutUint8(buf []uint8) {
	if cap(buf) == 0 {
		return
	}
	cls := cap(buf)
	if sizeClass(cls) != cls {
		return
	}
	if p := poolFor(cls); p != nil {
		full := buf[:cls]
		p.Put(&full)
	}
}
