package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(id string) *Client {
	return &Client{id: id, send: make(chan []byte, 8)}
}

func TestRegistryConnectAndBind(t *testing.T) {
	r := NewRegistry()
	c := testClient("conn-1")

	r.OnConnect(c)
	assert.True(t, r.Contains("conn-1"))
	assert.False(t, r.IsBound("conn-1"))

	require.NoError(t, r.Bind("conn-1", "u-1", "Ada Lovelace"))
	assert.True(t, r.IsBound("conn-1"))
	uid, ok := r.BoundUser("conn-1")
	require.True(t, ok)
	assert.Equal(t, "u-1", uid)
}

func TestRegistryBindRejectsUnknownAndRebind(t *testing.T) {
	r := NewRegistry()
	r.OnConnect(testClient("conn-1"))

	assert.Error(t, r.Bind("conn-2", "u-1", "Ada"))

	require.NoError(t, r.Bind("conn-1", "u-1", "Ada"))
	err := r.Bind("conn-1", "u-2", "Eve")
	assert.ErrorIs(t, err, ErrAlreadyBound)

	// The original binding is untouched.
	uid, _ := r.BoundUser("conn-1")
	assert.Equal(t, "u-1", uid)
}

func TestRegistryDisconnect(t *testing.T) {
	r := NewRegistry()
	r.OnConnect(testClient("anon"))
	r.OnConnect(testClient("bound"))
	require.NoError(t, r.Bind("bound", "u-1", "Ada"))

	present, bound := r.OnDisconnect("anon")
	assert.True(t, present)
	assert.False(t, bound)

	present, bound = r.OnDisconnect("bound")
	assert.True(t, present)
	assert.True(t, bound)

	present, bound = r.OnDisconnect("ghost")
	assert.False(t, present)
	assert.False(t, bound)

	assert.Equal(t, 0, r.Len())
}

func TestRegistrySnapshotDedupAndOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		r.OnConnect(testClient(id))
	}
	require.NoError(t, r.Bind("c1", "u-2", "Bob"))
	require.NoError(t, r.Bind("c2", "u-1", "Ada"))
	// Same user on a second device: one presence entry.
	require.NoError(t, r.Bind("c3", "u-1", "Ada"))
	// c4 stays anonymous and must not appear at all.

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, PresenceUser{ID: "u-1", Name: "Ada"}, snap[0])
	assert.Equal(t, PresenceUser{ID: "u-2", Name: "Bob"}, snap[1])
}

func TestRegistryBoundClients(t *testing.T) {
	r := NewRegistry()
	r.OnConnect(testClient("c1"))
	r.OnConnect(testClient("c2"))
	require.NoError(t, r.Bind("c1", "u-1", "Ada"))

	assert.Len(t, r.BoundClients(), 1)
	assert.Len(t, r.All(), 2)
}
