package converter

import (
	"time"

	"github.com/teamforge/signaling/internal/domain"
)

type RoomResponse struct {
	ID          string           `json:"id"`
	MemberCount int              `json:"member_count"`
	Members     []MemberResponse `json:"members"`
	CreatedAt   time.Time        `json:"created_at"`
}

type MemberResponse struct {
	ID       string              `json:"id"`
	Status   domain.MemberStatus `json:"status"`
	JoinedAt time.Time           `json:"joined_at"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	r.Mutex.RLock()
	members := make([]MemberResponse, 0, len(r.Members))
	for _, member := range r.Members {
		members = append(members, MemberResponse{
			ID:       member.ID,
			Status:   member.CurrentStatus(),
			JoinedAt: member.JoinTime(),
		})
	}
	r.Mutex.RUnlock()

	return &RoomResponse{
		ID:          r.ID,
		MemberCount: len(members),
		Members:     members,
		CreatedAt:   r.CreatedAt,
	}
}
