package history

import (
	"fmt"
	"sync"
)

// Stack - accumulates a limited number of relayed lines.
// When stack length reaches its capacity, the oldest item is dropped on every push.
type Stack struct {
	max  int
	mu   sync.RWMutex
	data [][]byte
}

// NewStack - builds history stack holding at most max items.
func NewStack(max int) (*Stack, error) {
	if max <= 0 {
		return nil, fmt.Errorf("history.NewStack: max (%d) must be greater than 0", max)
	}
	return &Stack{max: max, data: make([][]byte, 0, max)}, nil
}

// Cap - returns maximum number of items.
func (s *Stack) Cap() int {
	return s.max
}

// Len - returns number of items currently kept.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Push - adds copy of item to history.
func (s *Stack) Push(item []byte) {
	cp := append([]byte(nil), item...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == s.max {
		copy(s.data, s.data[1:])
		s.data = s.data[:len(s.data)-1]
	}
	s.data = append(s.data, cp)
}

// Tail - returns last n items, the first one is the oldest.
// Negative n is treated as its absolute value.
func (s *Stack) Tail(n int) [][]byte {
	if n < 0 {
		n = -n
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := len(s.data)
	if n > l {
		n = l
	}
	tail := make([][]byte, n)
	copy(tail, s.data[l-n:])
	return tail
}
