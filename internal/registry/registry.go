// Package registry owns the live membership of every quiz room and fans
// events out to it. All state is in-memory and scoped per room: connects,
// disconnects and broadcasts on one room never contend with another room's.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/pubquiz-backend/internal/apperr"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

// Registry maps room ids to their connected sessions. It admits only teams
// with a participation record for the room; everything else about a team's
// identity is the caller's concern.
type Registry struct {
	store store.Store
	log   *zap.Logger

	mu    sync.Mutex
	rooms map[string]*roomSet
}

// roomSet is one room's live sessions. Its own mutex serializes membership
// changes and broadcasts for the room, which is what keeps broadcasts
// ordered per room: two broadcasts enqueue to every member under the same
// lock, so no member ever observes them reordered.
type roomSet struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// Handle identifies a registered session for later disconnection.
type Handle struct {
	roomID string
	sess   *Session
}

func New(s store.Store, log *zap.Logger) *Registry {
	return &Registry{
		store: s,
		log:   log,
		rooms: make(map[string]*roomSet),
	}
}

// Connect adds sess to the room's live set. The room must exist and the
// session's team must hold a participation record for it; a session may be
// registered with at most one room at a time.
func (r *Registry) Connect(ctx context.Context, roomID string, sess *Session) (Handle, error) {
	if _, err := r.store.GetRoom(ctx, roomID); err != nil {
		return Handle{}, err
	}
	if _, err := r.store.GetParticipation(ctx, sess.TeamID, roomID); err != nil {
		if apperr.IsNotFound(err) {
			return Handle{}, apperr.New(apperr.CodeUnauthorized, "team %d is not a participant of room %q", sess.TeamID, roomID)
		}
		return Handle{}, err
	}
	if !sess.setRegistered(true) {
		return Handle{}, apperr.New(apperr.CodeConflict, "session already connected")
	}

	// The room lock is taken before the map lock is released so a concurrent
	// disconnect cannot prune the entry between lookup and insert.
	r.mu.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = &roomSet{sessions: make(map[*Session]struct{})}
		r.rooms[roomID] = set
	}
	set.mu.Lock()
	r.mu.Unlock()
	set.sessions[sess] = struct{}{}
	set.mu.Unlock()

	r.log.Info("session connected",
		zap.String("room_id", roomID),
		zap.Int64("team_id", sess.TeamID))
	return Handle{roomID: roomID, sess: sess}, nil
}

// Disconnect removes the handle's session from its room and closes its
// outbox. Disconnecting an already-removed (or zero) handle is a no-op. The
// room's in-memory entry is pruned once its last session leaves.
func (r *Registry) Disconnect(h Handle) {
	if h.sess == nil {
		return
	}
	h.sess.setRegistered(false)
	h.sess.close()

	r.mu.Lock()
	set, ok := r.rooms[h.roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	set.mu.Lock()
	delete(set.sessions, h.sess)
	empty := len(set.sessions) == 0
	set.mu.Unlock()
	if empty {
		delete(r.rooms, h.roomID)
	}
	r.mu.Unlock()

	r.log.Info("session disconnected",
		zap.String("room_id", h.roomID),
		zap.Int64("team_id", h.sess.TeamID))
}

// Members returns a snapshot of the room's connected sessions. Later
// connects and disconnects do not show up in a snapshot already taken.
func (r *Registry) Members(roomID string) []*Session {
	r.mu.Lock()
	set, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	members := make([]*Session, 0, len(set.sessions))
	for sess := range set.sessions {
		members = append(members, sess)
	}
	return members
}

// Broadcast delivers v to every session currently in the room. A recipient
// that cannot keep up is evicted (its outbox closes, ending its writer)
// rather than allowed to stall the room; failures never surface to the
// caller.
func (r *Registry) Broadcast(roomID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.log.Error("broadcast encode failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	r.mu.Lock()
	set, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	for sess := range set.sessions {
		if err := sess.sendRaw(payload); err != nil {
			delete(set.sessions, sess)
			sess.setRegistered(false)
			sess.close()
			r.log.Warn("dropping slow session",
				zap.String("room_id", roomID),
				zap.Int64("team_id", sess.TeamID))
		}
	}
}
