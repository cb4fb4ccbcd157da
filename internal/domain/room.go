package domain

import (
	"sync"
	"time"
)

// Room groups the members that exchange signaling messages with each other.
// The id is caller-supplied and opaque; a room exists exactly as long as it
// has at least one member.
type Room struct {
	Mutex     sync.RWMutex
	ID        string
	Members   map[string]*Member
	CreatedAt time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		Members:   make(map[string]*Member),
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Room) MemberCount() int {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	return len(r.Members)
}

// MembersExcept returns a snapshot of the member set without the given id.
// Callers deliver to the snapshot outside of any lock.
func (r *Room) MembersExcept(exclude string) []*Member {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()

	members := make([]*Member, 0, len(r.Members))
	for id, member := range r.Members {
		if id == exclude {
			continue
		}
		members = append(members, member)
	}
	return members
}
