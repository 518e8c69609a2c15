package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellyg78/vu-music-sala/internal/broadcast"
	"github.com/kellyg78/vu-music-sala/internal/domain"
	"github.com/kellyg78/vu-music-sala/internal/remote"
)

func newTestRegistry(f *fakeRemote) *Registry {
	return NewRegistry(func() remote.Client { return f }, broadcast.NewGateway())
}

func TestRegistryConnectCreatesOnce(t *testing.T) {
	f := &fakeRemote{}
	reg := newTestRegistry(f)
	ctx := context.Background()
	creds := remote.Credentials{Username: "bot", Password: "pw"}

	sess, err := reg.Connect(ctx, "u1", creds)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Connect(ctx, "u1", creds)
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Equal(t, 1, f.authCalls)
}

func TestRegistryConcurrentConnectSingleLogin(t *testing.T) {
	f := &fakeRemote{authDelay: 50 * time.Millisecond}
	reg := newTestRegistry(f)
	creds := remote.Credentials{Username: "bot", Password: "pw"}

	const racers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		refused int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Connect(context.Background(), "u1", creds)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, racers-1, refused)
	assert.Equal(t, 1, f.authCalls)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryConnectFailureCleansUp(t *testing.T) {
	f := &fakeRemote{authErr: remote.ErrAuthFailure}
	reg := newTestRegistry(f)
	creds := remote.Credentials{Username: "bot", Password: "bad"}

	_, err := reg.Connect(context.Background(), "u1", creds)
	assert.ErrorIs(t, err, remote.ErrAuthFailure)
	assert.Equal(t, 0, reg.Len())

	// A later attempt starts clean and reaches the platform again.
	f.mu.Lock()
	f.authErr = nil
	f.mu.Unlock()
	_, err = reg.Connect(context.Background(), "u1", creds)
	require.NoError(t, err)
	assert.Equal(t, 2, f.authCalls)
}

func TestRegistryLoginFailureDoesNotEvictNewerSession(t *testing.T) {
	gate := make(chan struct{})
	stuck := &fakeRemote{authGate: gate, authErr: remote.ErrAuthFailure}
	fresh := &fakeRemote{}

	// First session gets the stuck client, every later one the working
	// client.
	var (
		factoryMu sync.Mutex
		handedOut int
	)
	reg := NewRegistry(func() remote.Client {
		factoryMu.Lock()
		defer factoryMu.Unlock()
		handedOut++
		if handedOut == 1 {
			return stuck
		}
		return fresh
	}, broadcast.NewGateway())

	creds := remote.Credentials{Username: "bot", Password: "pw"}
	firstDone := make(chan error, 1)
	go func() {
		_, err := reg.Connect(context.Background(), "u1", creds)
		firstDone <- err
	}()
	require.Eventually(t, func() bool {
		stuck.mu.Lock()
		defer stuck.mu.Unlock()
		return stuck.authCalls == 1
	}, time.Second, time.Millisecond)

	// The owner gives up on the stuck login and reconnects. Disconnect
	// frees the slot immediately; closing the old session waits for its
	// mutex, so it runs on the side.
	go reg.Disconnect(context.Background(), "u1")
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, time.Millisecond)

	sessB, err := reg.Connect(context.Background(), "u1", creds)
	require.NoError(t, err)

	// The old login now fails. Its cleanup must not evict the live
	// session the owner created in the meantime.
	close(gate)
	assert.ErrorIs(t, <-firstDone, remote.ErrAuthFailure)

	got, ok := reg.Get("u1")
	require.True(t, ok, "live session must still be registered")
	assert.Same(t, sessB, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryDisconnectRemovesOwner(t *testing.T) {
	f := &fakeRemote{}
	reg := newTestRegistry(f)
	ctx := context.Background()

	sess, err := reg.Connect(ctx, "u1", remote.Credentials{Username: "bot", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, sess.JoinRoom(ctx, "r1"))

	reg.Disconnect(ctx, "u1")

	_, ok := reg.Get("u1")
	assert.False(t, ok)
	assert.Equal(t, domain.StateClosed, sess.Snapshot().State)

	// Idempotent for absent owners.
	reg.Disconnect(ctx, "u1")
	reg.Disconnect(ctx, "never-connected")
}

func TestRegistryDisconnectEvenWhenRemoteFails(t *testing.T) {
	f := &fakeRemote{}
	reg := newTestRegistry(f)
	ctx := context.Background()

	sess, err := reg.Connect(ctx, "u1", remote.Credentials{Username: "bot", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, sess.JoinRoom(ctx, "r1"))

	f.mu.Lock()
	f.failWith = remote.ErrRemoteUnavailable
	f.mu.Unlock()

	reg.Disconnect(ctx, "u1")

	_, ok := reg.Get("u1")
	assert.False(t, ok)
	assert.Equal(t, domain.StateClosed, sess.Snapshot().State)
}

func TestRegistryIndependentOwners(t *testing.T) {
	f := &fakeRemote{}
	reg := newTestRegistry(f)
	ctx := context.Background()
	creds := remote.Credentials{Username: "bot", Password: "pw"}

	s1, err := reg.Connect(ctx, "u1", creds)
	require.NoError(t, err)
	s2, err := reg.Connect(ctx, "u2", creds)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	require.NoError(t, s1.JoinRoom(ctx, "r1"))
	assert.Equal(t, domain.StateConnected, s2.Snapshot().State)

	reg.Disconnect(ctx, "u1")
	_, ok := reg.Get("u2")
	assert.True(t, ok)
}
