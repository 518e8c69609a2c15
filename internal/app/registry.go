package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kellyg78/vu-music-sala/internal/broadcast"
	"github.com/kellyg78/vu-music-sala/internal/domain"
	"github.com/kellyg78/vu-music-sala/internal/remote"
)

// ClientFactory builds one remote client per session. Sessions never
// share a remote identity, so they never share a client either.
type ClientFactory func() remote.Client

// Registry owns every live session, one per owner. It is the only
// cross-session critical section in the process; everything else runs
// per-session.
type Registry struct {
	mu       sync.Mutex
	sessions map[domain.OwnerID]*Session

	newClient ClientFactory
	gateway   *broadcast.Gateway
}

func NewRegistry(newClient ClientFactory, gateway *broadcast.Gateway) *Registry {
	return &Registry{
		sessions:  make(map[domain.OwnerID]*Session),
		newClient: newClient,
		gateway:   gateway,
	}
}

// Connect creates the owner's session and performs the remote login.
// Creation is atomic: the entry is inserted under the registry lock
// before the login starts, so a racing second call for the same owner
// observes the in-flight session and gets ErrAlreadyConnected instead
// of starting a second remote login. If the login fails the entry is
// removed so a later attempt starts clean.
func (r *Registry) Connect(ctx context.Context, owner domain.OwnerID, creds remote.Credentials) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[owner]; ok {
		r.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	sess := NewSession(owner, r.newClient(), r.gateway)
	r.sessions[owner] = sess
	r.mu.Unlock()

	if err := sess.Connect(ctx, creds); err != nil {
		r.removeIf(owner, sess)
		log.Warn().Err(err).Str("module", "app.registry").Str("owner", string(owner)).Msg("login failed, entry removed")
		return nil, err
	}

	log.Info().Str("module", "app.registry").Str("owner", string(owner)).Msg("session created")
	return sess, nil
}

// Get returns the owner's session, if any.
func (r *Registry) Get(owner domain.OwnerID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[owner]
	return s, ok
}

// Remove drops the owner's entry without touching the session.
func (r *Registry) Remove(owner domain.OwnerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, owner)
}

// removeIf drops the owner's entry only while it still holds sess. A
// failed login that the owner already abandoned via Disconnect must not
// evict a session created after it.
func (r *Registry) removeIf(owner domain.OwnerID, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[owner] == sess {
		delete(r.sessions, owner)
	}
}

// Disconnect tears the owner's session down and frees the slot. Safe
// to call when no session exists; like Session.Disconnect it never
// fails the caller.
func (r *Registry) Disconnect(ctx context.Context, owner domain.OwnerID) {
	r.mu.Lock()
	sess, ok := r.sessions[owner]
	delete(r.sessions, owner)
	r.mu.Unlock()

	if !ok {
		return
	}
	sess.Disconnect(ctx)
	log.Info().Str("module", "app.registry").Str("owner", string(owner)).Msg("session removed")
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
