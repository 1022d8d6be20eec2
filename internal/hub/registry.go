package hub

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog/log"
)

const shardCount = 16

// Registry maps recipients and rooms to their live sessions. State is
// sharded by recipient so connect/disconnect storms for different users
// never contend on the same lock. The registry owns session membership
// exclusively: sessions enter via Join and leave only via Leave or a failed
// send inside Broadcast.
type Registry struct {
	shards [shardCount]*shard
}

type shard struct {
	mu          sync.RWMutex
	sessions    map[string]*member            // session id -> member
	byRecipient map[string]map[string]*member // recipient -> session id -> member
	byRoom      map[string]map[string]*member // room -> session id -> member
}

type member struct {
	sess  Session
	rooms map[string]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{
			sessions:    make(map[string]*member),
			byRecipient: make(map[string]map[string]*member),
			byRoom:      make(map[string]map[string]*member),
		}
	}
	return r
}

func (r *Registry) shardFor(recipient string) *shard {
	h := fnv.New32a()
	h.Write([]byte(recipient))
	return r.shards[h.Sum32()%shardCount]
}

// Join registers a session under its recipient and subscribes it to rooms.
// Re-joining with the same session id replaces the room set without
// creating a duplicate entry.
func (r *Registry) Join(sess Session, rooms []string) {
	s := r.shardFor(sess.Recipient())

	s.mu.Lock()
	m, ok := s.sessions[sess.ID()]
	if ok {
		// Idempotent re-join: drop old room memberships first.
		for room := range m.rooms {
			s.removeFromRoom(room, sess.ID())
		}
		m.sess = sess
		m.rooms = make(map[string]struct{}, len(rooms))
	} else {
		m = &member{sess: sess, rooms: make(map[string]struct{}, len(rooms))}
		s.sessions[sess.ID()] = m
		if s.byRecipient[sess.Recipient()] == nil {
			s.byRecipient[sess.Recipient()] = make(map[string]*member)
		}
		s.byRecipient[sess.Recipient()][sess.ID()] = m
	}

	for _, room := range rooms {
		m.rooms[room] = struct{}{}
		if s.byRoom[room] == nil {
			s.byRoom[room] = make(map[string]*member)
		}
		s.byRoom[room][sess.ID()] = m
	}
	total := len(s.sessions)
	s.mu.Unlock()

	log.Info().Str("session_id", sess.ID()).Str("recipient_id", sess.Recipient()).
		Strs("rooms", rooms).Int("shard_sessions", total).Msg("session joined")
}

// Leave removes a session from the registry. Unknown session ids are a no-op.
func (r *Registry) Leave(sessionID string) {
	for _, s := range r.shards {
		s.mu.Lock()
		m, ok := s.sessions[sessionID]
		if !ok {
			s.mu.Unlock()
			continue
		}
		s.removeLocked(sessionID, m)
		s.mu.Unlock()

		log.Info().Str("session_id", sessionID).Str("recipient_id", m.sess.Recipient()).Msg("session left")
		return
	}
}

// removeLocked drops every index entry for a session. Caller holds s.mu.
func (s *shard) removeLocked(sessionID string, m *member) {
	delete(s.sessions, sessionID)

	recipient := m.sess.Recipient()
	if byID, ok := s.byRecipient[recipient]; ok {
		delete(byID, sessionID)
		if len(byID) == 0 {
			delete(s.byRecipient, recipient)
		}
	}
	for room := range m.rooms {
		s.removeFromRoom(room, sessionID)
	}
}

func (s *shard) removeFromRoom(room, sessionID string) {
	if byID, ok := s.byRoom[room]; ok {
		delete(byID, sessionID)
		if len(byID) == 0 {
			delete(s.byRoom, room)
		}
	}
}

// SessionsFor returns the live sessions of a recipient. A recipient with no
// live session yields an empty slice, never an error.
func (r *Registry) SessionsFor(recipient string) []Session {
	s := r.shardFor(recipient)

	s.mu.RLock()
	byID := s.byRecipient[recipient]
	sessions := make([]Session, 0, len(byID))
	for _, m := range byID {
		sessions = append(sessions, m.sess)
	}
	s.mu.RUnlock()

	return sessions
}

// Broadcast pushes a message to every session subscribed to the room.
// Delivery per session is best-effort: a failed send evicts that session
// (implicit disconnect) and delivery to the remaining sessions continues.
// It returns the number of sessions that received the message.
func (r *Registry) Broadcast(ctx context.Context, room string, msg Message) int {
	// Snapshot members across shards, then send without holding any lock.
	var targets []Session
	for _, s := range r.shards {
		s.mu.RLock()
		for _, m := range s.byRoom[room] {
			targets = append(targets, m.sess)
		}
		s.mu.RUnlock()
	}

	delivered := 0
	for _, sess := range targets {
		if err := sess.Send(ctx, msg); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID()).Str("room", room).
				Msg("broadcast push failed, evicting session")
			r.Evict(sess.ID())
			continue
		}
		delivered++
	}

	return delivered
}

// Evict removes a session after a failed send and closes its transport.
func (r *Registry) Evict(sessionID string) {
	for _, s := range r.shards {
		s.mu.Lock()
		m, ok := s.sessions[sessionID]
		if !ok {
			s.mu.Unlock()
			continue
		}
		s.removeLocked(sessionID, m)
		s.mu.Unlock()

		_ = m.sess.Close()
		return
	}
}
