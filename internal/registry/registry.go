// Package registry owns the relay's only shared mutable state: which members
// exist and which room each one currently belongs to. All mutations go
// through one mutex so concurrent join/leave/relay calls from independent
// connections are serialized instead of racing on a room's member set.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/teamforge/signaling/internal/domain"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrAlreadyJoined  = errors.New("member already joined a room")
	ErrNotJoined      = errors.New("member has not joined a room")
	ErrRoomIDRequired = errors.New("room id is required")
)

type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*domain.Room
	members map[string]*domain.Member
}

func New() *Registry {
	return &Registry{
		rooms:   make(map[string]*domain.Room),
		members: make(map[string]*domain.Member),
	}
}

// Add registers a freshly connected member that has not joined a room yet.
func (r *Registry) Add(ctx context.Context, member *domain.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[member.ID] = member
	return nil
}

func (r *Registry) Member(ctx context.Context, id string) (*domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// Join puts the member into the room, creating the room on first join. A
// member that already belongs to a room is rejected and the membership stays
// untouched. Returns the members that were in the room before this join.
func (r *Registry) Join(ctx context.Context, memberID, roomID string) (*domain.Room, []*domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if roomID == "" {
		return nil, nil, ErrRoomIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[memberID]
	if !ok {
		return nil, nil, ErrMemberNotFound
	}
	if member.CurrentRoom() != "" {
		return nil, nil, ErrAlreadyJoined
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = domain.NewRoom(roomID)
		r.rooms[roomID] = room
	}

	existing := room.MembersExcept(memberID)

	room.Mutex.Lock()
	room.Members[memberID] = member
	room.Mutex.Unlock()

	member.SetRoom(roomID)

	return room, existing, nil
}

// Others returns the member's room id and a snapshot of everyone else in the
// room. A member that has not joined yet gets ErrNotJoined.
func (r *Registry) Others(ctx context.Context, memberID string) (string, []*domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[memberID]
	if !ok {
		return "", nil, ErrMemberNotFound
	}

	roomID := member.CurrentRoom()
	if roomID == "" {
		return "", nil, ErrNotJoined
	}

	room, ok := r.rooms[roomID]
	if !ok {
		return "", nil, ErrRoomNotFound
	}

	return roomID, room.MembersExcept(memberID), nil
}

// Remove drops the member from the registry and from its room, deleting the
// room once its member set is empty. Removing an unknown member is reported
// as ErrMemberNotFound so callers can treat it as a no-op.
func (r *Registry) Remove(ctx context.Context, memberID string) (*domain.Member, string, []*domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[memberID]
	if !ok {
		return nil, "", nil, ErrMemberNotFound
	}
	delete(r.members, memberID)

	roomID := member.CurrentRoom()
	if roomID == "" {
		return member, "", nil, nil
	}

	var survivors []*domain.Member
	if room, ok := r.rooms[roomID]; ok {
		room.Mutex.Lock()
		delete(room.Members, memberID)
		empty := len(room.Members) == 0
		room.Mutex.Unlock()

		if empty {
			delete(r.rooms, roomID)
		} else {
			survivors = room.MembersExcept(memberID)
		}
	}

	return member, roomID, survivors, nil
}

func (r *Registry) Room(ctx context.Context, id string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (r *Registry) Rooms(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room)
	}
	return result, nil
}
