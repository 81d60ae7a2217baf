package devconf

import (
	"sync/atomic"

	"github.com/yifeimfd/usbip-win/pkg"
)

// Pool accounts for the memory the registry holds. Every duplicated record
// is charged to the pool before it is built and credited back when it is
// released.
type Pool interface {
	// Alloc reserves size bytes. It returns pkg.ErrNoMemory when the
	// reservation cannot be satisfied.
	Alloc(size int) error

	// Free returns size bytes previously reserved with Alloc.
	Free(size int)
}

// HeapPool is an unbounded Pool backed by the Go heap. It never fails.
type HeapPool struct{}

// Alloc always succeeds.
func (HeapPool) Alloc(int) error { return nil }

// Free is a no-op.
func (HeapPool) Free(int) {}

// QuotaPool is a Pool with a fixed byte budget, modelling the driver's
// non-paged pool. It is safe for concurrent use.
type QuotaPool struct {
	limit int64
	inUse atomic.Int64
	peak  atomic.Int64
	fails atomic.Int64
}

// NewQuotaPool returns a pool that admits at most limit outstanding bytes.
// A limit <= 0 admits nothing.
func NewQuotaPool(limit int64) *QuotaPool {
	return &QuotaPool{limit: limit}
}

// Alloc reserves size bytes if the budget allows it.
func (p *QuotaPool) Alloc(size int) error {
	n := int64(size)
	for {
		cur := p.inUse.Load()
		next := cur + n
		if n < 0 || next > p.limit {
			p.fails.Add(1)
			pkg.LogDebug(pkg.ComponentPool, "allocation refused",
				"size", size,
				"in_use", cur,
				"limit", p.limit)
			return pkg.ErrNoMemory
		}
		if p.inUse.CompareAndSwap(cur, next) {
			for {
				peak := p.peak.Load()
				if next <= peak || p.peak.CompareAndSwap(peak, next) {
					break
				}
			}
			return nil
		}
	}
}

// Free returns size bytes to the budget.
func (p *QuotaPool) Free(size int) {
	if left := p.inUse.Add(-int64(size)); left < 0 {
		pkg.LogError(pkg.ComponentPool, "pool freed more than allocated",
			"size", size,
			"in_use", left)
	}
}

// Limit returns the byte budget.
func (p *QuotaPool) Limit() int64 { return p.limit }

// InUse returns the number of bytes currently reserved.
func (p *QuotaPool) InUse() int64 { return p.inUse.Load() }

// Peak returns the highest number of bytes reserved at once.
func (p *QuotaPool) Peak() int64 { return p.peak.Load() }

// Failures returns the number of refused allocations.
func (p *QuotaPool) Failures() int64 { return p.fails.Load() }
