package transport

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// progress logs roughly every 1% of a batch.
type progress struct {
	total     int64
	nextPrint int64
	counter   atomic.Int64
}

func newProgress(total int) *progress {
	p := &progress{total: int64(total), nextPrint: 1}
	if total >= 100 {
		p.nextPrint = int64(total / 100)
	}
	return p
}

func (p *progress) tick(log *zap.Logger) {
	if p == nil || p.total == 0 {
		return
	}
	done := p.counter.Add(1)
	if done%p.nextPrint == 0 {
		log.Debug("progress", zap.Float64("percent", float64(done)*100/float64(p.total)))
	}
}

func (p *progress) done() int64 { return p.counter.Load() }
