package session

import (
	"drawit/domain"
	"slices"
	"time"
)

const (
	maxDrawHistory       = 10000
	compactedDrawHistory = 5000
)

type Participant struct {
	Id       string    `json:"id"`
	UserId   string    `json:"userId,omitempty"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	IsHost   bool      `json:"isHost"`
}

type DrawEvent struct {
	FromX     float64 `json:"fromX"`
	FromY     float64 `json:"fromY"`
	ToX       float64 `json:"toX"`
	ToY       float64 `json:"toY"`
	Color     string  `json:"color"`
	Size      float64 `json:"size"`
	Tool      string  `json:"tool"`
	EmitterId string  `json:"emitterId"`
	Timestamp int64   `json:"timestamp"`
}

// Room is a freeform whiteboard. It is only touched from the engine goroutine.
type Room struct {
	code         string
	hostId       string
	participants map[string]*Participant
	order        []string
	drawHistory  []DrawEvent
	createdAt    time.Time
	durable      *domain.DurableRoom
}

func NewRoom(code, hostId string, durable *domain.DurableRoom, now time.Time) *Room {
	return &Room{
		code:         code,
		hostId:       hostId,
		participants: make(map[string]*Participant),
		order:        make([]string, 0, 8),
		drawHistory:  make([]DrawEvent, 0, 256),
		createdAt:    now,
		durable:      durable,
	}
}

func (r *Room) Code() string { return r.code }
func (r *Room) HostId() string { return r.hostId }
func (r *Room) CreatedAt() time.Time { return r.createdAt }
func (r *Room) Durable() *domain.DurableRoom { return r.durable }
func (r *Room) SetDurable(d *domain.DurableRoom) { r.durable = d }
func (r *Room) Len() int { return len(r.participants) }

// AddParticipant inserts or overwrites the participant keyed by id. An overwrite keeps
// the first roster position.
func (r *Room) AddParticipant(id, userId, name string, now time.Time) Participant {
	if _, exists := r.participants[id]; !exists {
		r.order = append(r.order, id)
	}
	p := &Participant{
		Id:       id,
		UserId:   userId,
		Name:     name,
		JoinedAt: now,
		IsHost:   id == r.hostId,
	}
	r.participants[id] = p
	return *p
}

// RemoveParticipant never touches hostId, host migration is up to the caller.
func (r *Room) RemoveParticipant(id string) (Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}
	delete(r.participants, id)
	r.order = slices.DeleteFunc(r.order, func(x string) bool { return x == id })
	return *p, true
}

func (r *Room) Participant(id string) (Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

func (r *Room) Has(id string) bool {
	_, ok := r.participants[id]
	return ok
}

// SetHost moves the host flag to id. Unknown ids are ignored.
func (r *Room) SetHost(id string) bool {
	next, ok := r.participants[id]
	if !ok {
		return false
	}
	if prev, ok := r.participants[r.hostId]; ok {
		prev.IsHost = false
	}
	r.hostId = id
	next.IsHost = true
	return true
}

// Participants returns the roster in join order.
func (r *Room) Participants() []Participant {
	res := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, *r.participants[id])
	}
	return res
}

// ParticipantIds returns the connection ids in join order.
func (r *Room) ParticipantIds() []string {
	return slices.Clone(r.order)
}

func (r *Room) AddDrawEvent(e DrawEvent) {
	r.drawHistory = append(r.drawHistory, e)
	if len(r.drawHistory) > maxDrawHistory {
		kept := make([]DrawEvent, compactedDrawHistory, maxDrawHistory)
		copy(kept, r.drawHistory[len(r.drawHistory)-compactedDrawHistory:])
		r.drawHistory = kept
	}
}

func (r *Room) ClearHistory() {
	r.drawHistory = make([]DrawEvent, 0, 256)
}

func (r *Room) DrawHistory() []DrawEvent {
	return slices.Clone(r.drawHistory)
}

func (r *Room) HistoryLen() int {
	return len(r.drawHistory)
}
