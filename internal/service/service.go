package service

import (
	"context"

	"github.com/teamforge/signaling/internal/domain"
)

type RelayInteractor interface {
	Connect(ctx context.Context) (*domain.Member, error)
	Join(ctx context.Context, memberID, roomID string) error
	Relay(ctx context.Context, memberID string, message *domain.SignalMessage) error
	Disconnect(ctx context.Context, memberID string) error
	Rooms(ctx context.Context) ([]*domain.Room, error)
	Room(ctx context.Context, id string) (*domain.Room, error)
}
