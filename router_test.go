package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverMatchesToken(t *testing.T) {
	cfg := testConfig(t)
	rt := newRouter()

	ann := testClient(rt, "token-ann")
	ben := testClient(rt, "token-ben")

	rt.deliver(cfg, "token-ann", "hello")

	require.Len(t, drain(ann), 1)
	assert.Empty(t, drain(ben))
}

func TestDeliverToNobodyIsANoop(t *testing.T) {
	cfg := testConfig(t)
	rt := newRouter()

	// The normal "player not yet connected" case.
	rt.deliver(cfg, "token-ghost", "hello")
}

func TestDeliverToDuplicateConnections(t *testing.T) {
	cfg := testConfig(t)
	rt := newRouter()

	// Two tabs, one identity, mid-reconnect.
	first := testClient(rt, "token-ann")
	second := testClient(rt, "token-ann")

	rt.deliver(cfg, "token-ann", "hello")

	assert.Len(t, drain(first), 1)
	assert.Len(t, drain(second), 1)
}

func TestDeliverEmptyTokenNeverMatches(t *testing.T) {
	cfg := testConfig(t)
	rt := newRouter()

	untagged := &Client{send: make(chan any, 4)}
	rt.register(untagged)

	rt.deliver(cfg, "", "hello")

	assert.Empty(t, drain(untagged))
}

func TestSlowConnectionDegradesAlone(t *testing.T) {
	cfg := testConfig(t)
	rt := newRouter()

	stuck := &Client{send: make(chan any), token: "token-ann"}
	rt.register(stuck)
	healthy := testClient(rt, "token-ann")

	rt.deliver(cfg, "token-ann", "hello")

	// The healthy connection still got the message.
	require.Len(t, drain(healthy), 1)

	// The stuck one was dropped and its channel closed.
	_, open := <-stuck.send
	assert.False(t, open)

	rt.mu.Lock()
	_, registered := rt.clients[stuck]
	rt.mu.Unlock()
	assert.False(t, registered)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	rt := newRouter()
	c := testClient(rt, "token-ann")

	rt.unregister(c)
	rt.unregister(c)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	assert.Empty(t, rt.clients)
}
