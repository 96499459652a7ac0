package core

// DefaultPollBudget is the number of status polls before a wait fails
const DefaultPollBudget = 15000

// WaitPolicy bounds the busy-wait on a peripheral status flag.
// Wait returns true once ready reports true, false when the budget is spent.
type WaitPolicy interface {
	Wait(ready func() bool) bool
}

// IterationBudget fails a wait after a fixed number of polls. The elapsed
// time therefore scales with the core clock: a slower clock gives a
// shorter real timeout.
type IterationBudget uint32

func (b IterationBudget) Wait(ready func() bool) bool {
	for n := uint32(b); n > 0; n-- {
		if ready() {
			return true
		}
	}
	return false
}

// TickBudget fails a wait once the system tick counter has advanced by
// Ticks since the wait started. Tests drive it deterministically through
// SetTime from inside the ready callback.
type TickBudget struct {
	Ticks uint32
}

func (b TickBudget) Wait(ready func() bool) bool {
	start := GetTime()
	for {
		if ready() {
			return true
		}
		if GetTime()-start >= b.Ticks {
			return false
		}
	}
}
