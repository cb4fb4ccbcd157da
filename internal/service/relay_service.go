package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/teamforge/signaling/internal/domain"
	"github.com/teamforge/signaling/internal/registry"
	"github.com/teamforge/signaling/lib/logger/sl"
)

// RelayService drives the per-connection state machine: connected -> joined
// -> closed. It never looks inside signaling payloads; its whole job is
// membership tracking and fan-out to "room minus sender".
type RelayService struct {
	reg       *registry.Registry
	log       *slog.Logger
	queueSize int
}

func NewRelayService(reg *registry.Registry, log *slog.Logger, queueSize int) *RelayService {
	if log == nil {
		log = slog.Default()
	}
	return &RelayService{
		reg:       reg,
		log:       log,
		queueSize: queueSize,
	}
}

// Connect registers a new member that has a live transport but no room yet.
func (s *RelayService) Connect(ctx context.Context) (*domain.Member, error) {
	member := domain.NewMember(s.queueSize)
	if err := s.reg.Add(ctx, member); err != nil {
		return nil, err
	}

	s.log.Info("member connected", "member_id", member.ID)
	return member, nil
}

// Join associates the member with the room, creating the room on first join.
// A second join on the same connection is rejected and leaves the membership
// unchanged. Members already in the room are told about the newcomer, which
// is what prompts the initiating side to send its offer.
func (s *RelayService) Join(ctx context.Context, memberID, roomID string) error {
	const op = "service.relay.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("member_id", memberID),
		slog.String("room_id", roomID),
	)

	roomID = strings.TrimSpace(roomID)

	room, existing, err := s.reg.Join(ctx, memberID, roomID)
	if err != nil {
		log.Info("join rejected", sl.Err(err))
		return err
	}

	notice := domain.SignalMessage{
		Type:     domain.SignalTypePeerJoined,
		RoomID:   room.ID,
		SenderID: memberID,
	}
	for _, other := range existing {
		if !other.EnqueueEvent(notice) {
			log.Debug("dropping peer-joined notice", slog.String("member", other.ID))
		}
	}

	log.Info("member joined", "peers_count", room.MemberCount())
	return nil
}

// Relay forwards the message verbatim to every other current member of the
// sender's room. An empty room is a silent no-op; the first party always
// signals into an empty room for a moment. A receiver whose outbound queue
// is full gets disconnected rather than stalling or growing without bound.
func (s *RelayService) Relay(ctx context.Context, memberID string, message *domain.SignalMessage) error {
	const op = "service.relay.forward"
	if message == nil {
		return errors.New("message is required")
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("member_id", memberID),
		slog.String("type", string(message.Type)),
	)

	roomID, others, err := s.reg.Others(ctx, memberID)
	if err != nil {
		log.Info("relay rejected", sl.Err(err))
		return err
	}

	forward := *message
	forward.RoomID = roomID
	forward.Room = ""
	forward.SenderID = memberID

	delivered := 0
	for _, other := range others {
		if other.EnqueueEvent(forward) {
			delivered++
			continue
		}
		log.Warn("receiver queue overflow, disconnecting", slog.String("member", other.ID))
		if err := s.Disconnect(ctx, other.ID); err != nil {
			log.Error("failed to disconnect stalled member", sl.Err(err))
		}
	}

	log.Debug("signal relayed", "room_id", roomID, "delivered", delivered)
	return nil
}

// Disconnect tears the member down: out of its room, room deleted when it
// was the last one, survivors notified. Always succeeds; disconnecting an
// unknown or already-closed member is a no-op.
func (s *RelayService) Disconnect(ctx context.Context, memberID string) error {
	const op = "service.relay.disconnect"
	log := s.log.With(
		slog.String("op", op),
		slog.String("member_id", memberID),
	)

	member, roomID, survivors, err := s.reg.Remove(ctx, memberID)
	if err != nil {
		if errors.Is(err, registry.ErrMemberNotFound) {
			return nil
		}
		return err
	}

	member.Close()

	member.Mutex.Lock()
	if member.Socket != nil {
		member.Socket.Close()
		member.Socket = nil
	}
	member.Mutex.Unlock()

	if roomID != "" {
		notice := domain.SignalMessage{
			Type:     domain.SignalTypePeerLeft,
			RoomID:   roomID,
			SenderID: memberID,
		}
		for _, other := range survivors {
			if !other.EnqueueEvent(notice) {
				log.Debug("dropping peer-left notice", slog.String("member", other.ID))
			}
		}
	}

	log.Info("member disconnected", "room_id", roomID)
	return nil
}

func (s *RelayService) Rooms(ctx context.Context) ([]*domain.Room, error) {
	return s.reg.Rooms(ctx)
}

func (s *RelayService) Room(ctx context.Context, id string) (*domain.Room, error) {
	return s.reg.Room(ctx, id)
}
