package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Add(test *testing.T) {
	req := require.New(test)
	registry := NewRegistry()
	a, b := newPeer(test), newPeer(test)

	// Given an empty registry
	req.Empty(registry.Snapshot())

	// When connections are added
	req.NoError(registry.Add(a.conn))
	req.NoError(registry.Add(b.conn))

	// Then both are in the snapshot
	req.Equal(2, registry.Len())
	req.ElementsMatch([]*Conn{a.conn, b.conn}, registry.Snapshot())
}

func TestRegistry_Add_Duplicate(test *testing.T) {
	req := require.New(test)
	registry := NewRegistry()
	a := newPeer(test)

	req.NoError(registry.Add(a.conn))
	req.ErrorIs(registry.Add(a.conn), ErrDuplicateConn)
	req.Error(registry.Add(nil))

	req.Equal(1, registry.Len())
}

func TestRegistry_Remove_Idempotent(test *testing.T) {
	req := require.New(test)
	registry := NewRegistry()
	a, b := newPeer(test), newPeer(test)
	req.NoError(registry.Add(a.conn))
	req.NoError(registry.Add(b.conn))

	// When the same connection is removed twice and an unknown one is removed
	registry.Remove(a.conn.ID())
	registry.Remove(a.conn.ID())
	registry.Remove(newConnID())

	// Then only the other connection is left
	req.Equal([]*Conn{b.conn}, registry.Snapshot())

	// And the removed connection can be registered again
	req.NoError(registry.Add(a.conn))
	req.Equal(2, registry.Len())
}

func TestRegistry_Snapshot_IsCopy(test *testing.T) {
	req := require.New(test)
	registry := NewRegistry()
	a := newPeer(test)
	req.NoError(registry.Add(a.conn))

	snapshot := registry.Snapshot()
	registry.Remove(a.conn.ID())
	snapshot[0] = nil

	req.Empty(registry.Snapshot())
	req.Len(snapshot, 1)
}

func TestRegistry_Concurrent(test *testing.T) {
	req := require.New(test)
	registry := NewRegistry()
	peers := make([]*peer, 32)
	for i := range peers {
		peers[i] = newPeer(test)
	}

	wg := sync.WaitGroup{}
	for i, p := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req.NoError(registry.Add(p.conn))
			registry.Snapshot()
			if i%2 == 0 {
				registry.Remove(p.conn.ID())
			}
		}()
	}
	wg.Wait()

	// Then exactly odd peers are left, each one once
	snapshot := registry.Snapshot()
	req.Len(snapshot, len(peers)/2)
	seen := map[ConnID]bool{}
	for _, conn := range snapshot {
		req.False(seen[conn.ID()])
		seen[conn.ID()] = true
	}
	for i := 1; i < len(peers); i += 2 {
		req.True(seen[peers[i].conn.ID()])
	}
}
