package session

import "sync/atomic"

// Guard admits one translation cycle at a time. A submission that finds it
// busy is rejected outright; there is no queue.
type Guard struct {
	busy atomic.Bool
}

// TryBegin marks the guard busy and reports whether the caller won it.
func (g *Guard) TryBegin() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *Guard) End() {
	g.busy.Store(false)
}

func (g *Guard) Busy() bool {
	return g.busy.Load()
}
