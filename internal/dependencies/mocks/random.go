package mocks

import (
	"example.com/stuckem/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Intn pops queued results in order and returns 0 once the queue is empty.
// Queued values are reduced modulo n so a queue never produces an
// out-of-range result.
type MockRandom struct {
	IntnResults []int
	intnIndex   int

	// Calls records the n passed to every Intn call.
	Calls []int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	r.Calls = append(r.Calls, n)
	if r.intnIndex >= len(r.IntnResults) || n <= 0 {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result % n
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.IntnResults = append(r.IntnResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.IntnResults = nil
	r.intnIndex = 0
	r.Calls = nil
}
