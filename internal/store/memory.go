package store

import (
	"sort"
	"sync"
	"time"

	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/models"
)

// Registry owns every live room. A single RWMutex guards the map and the
// rooms inside it: lookups share the read lock, and any room mutation holds
// the write lock for the whole read-modify-publish.
type Registry struct {
	rooms map[string]*game.Room
	mu    sync.RWMutex
	deps  game.Deps
}

// NewRegistry creates an empty registry whose rooms share deps
func NewRegistry(deps game.Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		rooms: make(map[string]*game.Room),
		deps:  deps,
	}
}

// Create opens a room under a fresh code
func (s *Registry) Create(hostName string, rules *models.GameRules) (models.CreatedRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := game.UniqueRoomCode(func(code string) bool {
		_, exists := s.rooms[code]
		return exists
	})
	room, created, err := game.NewRoom(code, hostName, rules, s.deps)
	if err != nil {
		return models.CreatedRoom{}, err
	}
	s.rooms[code] = room
	return created, nil
}

func (s *Registry) lookup(raw string) (*game.Room, error) {
	code, err := game.ParseRoomCode(raw)
	if err != nil {
		return nil, err
	}
	room, exists := s.rooms[code]
	if !exists {
		return nil, game.NotFound("room not found")
	}
	return room, nil
}

// View runs fn with shared access to a room. fn must not mutate it.
func (s *Registry) View(code string, fn func(*game.Room) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, err := s.lookup(code)
	if err != nil {
		return err
	}
	return fn(room)
}

// Update runs fn with exclusive access to a room
func (s *Registry) Update(code string, fn func(*game.Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := s.lookup(code)
	if err != nil {
		return err
	}
	return fn(room)
}

// Exists checks if a room code is live
func (s *Registry) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.lookup(code)
	return err == nil
}

// Delete removes a room and closes its event channel
func (s *Registry) Delete(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := s.lookup(code)
	if err != nil {
		return false
	}
	delete(s.rooms, room.Code())
	room.Close()
	return true
}

// Len returns the number of live rooms
func (s *Registry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Sweep removes rooms that are between rounds or in the lobby and have been
// idle for longer than ttl. Rooms mid-round are never removed. It returns the
// removed codes in order.
func (s *Registry) Sweep(ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.deps.Now().Add(-ttl)
	var expired []string
	for code, room := range s.rooms {
		if !room.Phase().Expirable() || !room.LastActivity().Before(cutoff) {
			continue
		}
		delete(s.rooms, code)
		room.Close()
		expired = append(expired, code)
	}
	sort.Strings(expired)
	return expired
}

// Close closes every room's event channel; used on shutdown
func (s *Registry) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, room := range s.rooms {
		room.Close()
		delete(s.rooms, code)
	}
}
