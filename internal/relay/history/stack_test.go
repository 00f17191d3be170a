package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func lines(items ...string) [][]byte {
	result := make([][]byte, len(items))
	for i, item := range items {
		result[i] = []byte(item)
	}
	return result
}

func TestStack(test *testing.T) {
	req := require.New(test)

	_, err := NewStack(0)
	req.Error(err)
	_, err = NewStack(-1)
	req.EqualError(err, "history.NewStack: max (-1) must be greater than 0")

	s, err := NewStack(2)
	req.NoError(err)
	s.Push([]byte("1"))
	s.Push([]byte("2"))
	s.Push([]byte("3"))
	req.Equal(2, s.Len())
	req.Equal(2, s.Cap())

	req.Empty(s.Tail(0))
	req.Equal(lines("3"), s.Tail(1))
	req.Equal(lines("2", "3"), s.Tail(2))
	req.Equal(lines("2", "3"), s.Tail(-2))
	req.Equal(lines("2", "3"), s.Tail(100))
}

func TestStack_PushCopiesItem(test *testing.T) {
	req := require.New(test)
	s, _ := NewStack(1)

	item := []byte("hello")
	s.Push(item)
	item[0] = 'j'

	req.Equal(lines("hello"), s.Tail(1))
}

func TestStack_ConcurrentPush(test *testing.T) {
	req := require.New(test)
	s, _ := NewStack(10)

	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Push([]byte("line"))
			s.Tail(5)
		}()
	}
	wg.Wait()

	req.Equal(10, s.Len())
}
