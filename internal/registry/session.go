package registry

import (
	"encoding/json"
	"sync"

	"github.com/DoyleJ11/pubquiz-backend/internal/apperr"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

const outboxSize = 16

// Session is one live connection of a team inside a room. Display attributes
// are snapshotted at connect time; the websocket layer drains Outbox into the
// connection.
type Session struct {
	TeamID         int64
	TeamName       string
	ProfilePicture string
	Slogan         string

	mu         sync.Mutex
	closed     bool
	registered bool
	outbox     chan []byte
}

func NewSession(team *store.Team) *Session {
	return &Session{
		TeamID:         team.ID,
		TeamName:       team.Name,
		ProfilePicture: team.ProfilePicture,
		Slogan:         team.Slogan,
		outbox:         make(chan []byte, outboxSize),
	}
}

// Outbox yields encoded events in send order. It is closed when the session
// is disconnected or evicted; the reader must stop then.
func (s *Session) Outbox() <-chan []byte { return s.outbox }

// Send encodes v and enqueues it without blocking. A full or closed outbox
// returns a transport error; the caller decides whether that ends the
// session.
func (s *Session) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.sendRaw(payload)
}

func (s *Session) sendRaw(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperr.New(apperr.CodeInternal, "session closed")
	}
	select {
	case s.outbox <- payload:
		return nil
	default:
		return apperr.New(apperr.CodeInternal, "session outbox full")
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.outbox)
	}
}

func (s *Session) setRegistered(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered == v {
		return false
	}
	s.registered = v
	return true
}
