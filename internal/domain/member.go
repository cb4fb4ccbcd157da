package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type MemberStatus string

const (
	MemberStatusConnected MemberStatus = "connected"
	MemberStatusJoined    MemberStatus = "joined"
	MemberStatusClosed    MemberStatus = "closed"
)

// Member is one live connection to the relay. It belongs to at most one room
// at a time. Outbound traffic goes through the bounded Events queue; a single
// writer goroutine drains it onto the socket.
type Member struct {
	ID          string
	RoomID      string
	Status      MemberStatus
	ConnectedAt time.Time
	JoinedAt    time.Time
	Mutex       sync.RWMutex
	Socket      *websocket.Conn
	Events      chan SignalMessage
	closed      bool
}

func NewMember(queueSize int) *Member {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Member{
		ID:          uuid.New().String(),
		Status:      MemberStatusConnected,
		ConnectedAt: time.Now().UTC(),
		Events:      make(chan SignalMessage, queueSize),
	}
}

// EnqueueEvent queues an outbound message without blocking. It reports false
// when the queue is full or the member is already closed.
func (m *Member) EnqueueEvent(event SignalMessage) bool {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()

	if m.closed {
		return false
	}
	select {
	case m.Events <- event:
		return true
	default:
		return false
	}
}

func (m *Member) SetStatus(status MemberStatus) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.Status = status
}

func (m *Member) SetRoom(roomID string) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	m.RoomID = roomID
	if roomID != "" {
		m.Status = MemberStatusJoined
		m.JoinedAt = time.Now().UTC()
	}
}

func (m *Member) CurrentRoom() string {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()
	return m.RoomID
}

func (m *Member) JoinTime() time.Time {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()
	return m.JoinedAt
}

func (m *Member) CurrentStatus() MemberStatus {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()
	return m.Status
}

// Close marks the member terminal and closes the Events queue so the writer
// goroutine drains and exits. Safe to call more than once.
func (m *Member) Close() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.Status = MemberStatusClosed
	close(m.Events)
}
