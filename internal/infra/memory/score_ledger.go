package memory

import (
	"context"
	"sync"
	"sync/atomic"
)

// ScoreLedger keeps scores in process memory. Each user owns an atomic
// counter, so adjustments for different users never contend.
type ScoreLedger struct {
	scores sync.Map // map[int64]*atomic.Int64
}

func NewScoreLedger() *ScoreLedger {
	return &ScoreLedger{}
}

func (l *ScoreLedger) Adjust(_ context.Context, userID, delta int64) (int64, error) {
	v, ok := l.scores.Load(userID)
	if !ok {
		v, _ = l.scores.LoadOrStore(userID, new(atomic.Int64))
	}
	return v.(*atomic.Int64).Add(delta), nil
}

func (l *ScoreLedger) Get(_ context.Context, userID int64) (int64, error) {
	v, ok := l.scores.Load(userID)
	if !ok {
		return 0, nil
	}
	return v.(*atomic.Int64).Load(), nil
}
