package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id, user string
	full     bool

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (p *fakePeer) ID() string     { return p.id }
func (p *fakePeer) UserID() string { return p.user }

func (p *fakePeer) Enqueue(payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full || p.closed {
		return false
	}
	p.frames = append(p.frames, payload)
	return true
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePeer) received() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func TestHubSendToUserAndBroadcast(t *testing.T) {
	hub := NewHub(nil)
	a1 := &fakePeer{id: "a1", user: "alice"}
	a2 := &fakePeer{id: "a2", user: "alice"}
	b := &fakePeer{id: "b", user: "bob"}
	full := &fakePeer{id: "c", user: "carol", full: true}
	for _, p := range []*fakePeer{a1, a2, b, full} {
		hub.Add(p)
	}

	require.Equal(t, 4, hub.Count())
	require.Equal(t, 2, hub.CountForUser("alice"))
	require.Equal(t, 2, hub.SendToUser("alice", []byte("hi")))
	require.Equal(t, 0, hub.SendToUser("nobody", []byte("hi")))
	require.Equal(t, 3, hub.Broadcast([]byte("all")))

	require.Equal(t, 2, a1.received())
	require.Equal(t, 1, b.received())
}

func TestHubRemoveIgnoresReplacedPeer(t *testing.T) {
	hub := NewHub(nil)
	old := &fakePeer{id: "same", user: "alice"}
	replacement := &fakePeer{id: "same", user: "alice"}
	hub.Add(old)
	hub.Add(replacement)

	require.False(t, hub.Remove(old))
	require.Equal(t, 1, hub.Count())
	require.True(t, hub.Remove(replacement))
	require.False(t, hub.Remove(replacement))
	require.Zero(t, hub.Count())
}

func TestHubCloseClosesEveryPeer(t *testing.T) {
	hub := NewHub(nil)
	peers := []*fakePeer{{id: "1", user: "u"}, {id: "2", user: "v"}}
	for _, p := range peers {
		hub.Add(p)
	}
	hub.Close()
	require.Zero(t, hub.Count())
	for _, p := range peers {
		require.True(t, p.closed)
	}
}

func TestHubConcurrentMembershipAndFanOut(t *testing.T) {
	hub := NewHub(nil)
	stable := &fakePeer{id: "stable", user: "watcher"}
	hub.Add(stable)

	const workers = 32
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			p := &fakePeer{id: fmt.Sprintf("p-%d", i), user: fmt.Sprintf("user-%d", i%4)}
			for range 50 {
				hub.Add(p)
				hub.Remove(p)
			}
		}(i)
		go func() {
			defer wg.Done()
			for range 50 {
				hub.Broadcast([]byte("tick"))
				hub.SendToUser("watcher", []byte("direct"))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, hub.Count())
	require.Equal(t, workers*50*2, stable.received())
}

func TestHubTryAddEnforcesPerUserLimit(t *testing.T) {
	hub := NewHub(nil)
	require.True(t, hub.TryAdd(&fakePeer{id: "b1", user: "bob"}, 1))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if hub.TryAdd(&fakePeer{id: fmt.Sprintf("a%d", i), user: "alice"}, 3) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 3, accepted)
	require.Equal(t, 3, hub.CountForUser("alice"))
	require.Equal(t, 1, hub.CountForUser("bob"))
	require.False(t, hub.TryAdd(&fakePeer{id: "b2", user: "bob"}, 1))
}
