package session

import (
	"context"
	"drawit/domain"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const defaultAsyncTimeout = 5 * time.Second

// Client is the engine's view of one live connection.
type Client interface {
	Id() string
	UserId() string
	Name() string
	Send(data []byte)
}

// RoomStore persists rooms created by authenticated users.
type RoomStore interface {
	CreateDurableRoom(ctx context.Context, code, hostUserId string) (domain.DurableRoom, error)
	FindActiveRoom(ctx context.Context, code string) (domain.DurableRoom, error)
	AddRoomParticipant(ctx context.Context, roomId, userId string) error
	RemoveRoomParticipant(ctx context.Context, roomId, userId string) error
	SaveRoomSnapshot(ctx context.Context, roomId string, snapshot []byte) error
}

type UserStore interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
	IncrementUserStat(ctx context.Context, id string, stat domain.UserStat) error
}

// Notifier receives session lifecycle events. Implementations must not block.
type Notifier interface {
	Notify(subject string, v any)
}

const (
	SubjectSessionCreated = "drawit.session.created"
	SubjectSessionDeleted = "drawit.session.deleted"
	SubjectGameEnded      = "drawit.game.ended"
)

type SessionEvent struct {
	Kind string `json:"kind"`
	Code string `json:"code"`
	At   int64  `json:"at"`
}

type GameEndedEvent struct {
	Code        string     `json:"code"`
	Winner      *Standing  `json:"winner,omitempty"`
	Leaderboard []Standing `json:"leaderboard"`
	At          int64      `json:"at"`
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}

type clientState struct {
	client   Client
	roomCode string
	gameCode string
}

type request struct {
	cs   *clientState
	ack  *int64
	data json.RawMessage
}

type Stats struct {
	ActiveRooms int `json:"activeRooms"`
	ActiveGames int `json:"activeGames"`
}

type RoomSummary struct {
	Code             string    `json:"code"`
	ParticipantCount int       `json:"participantCount"`
	CreatedAt        time.Time `json:"createdAt"`
	IsActive         bool      `json:"isActive"`
}

type GameSummary struct {
	Code        string    `json:"code"`
	Status      Status    `json:"status"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Engine owns the registry and every per-connection association. All state is mutated
// on the goroutine running Run.
type Engine struct {
	registry *Registry
	clients  map[string]*clientState
	handlers map[string]func(request)

	rooms    RoomStore
	users    UserStore
	notifier Notifier
	tickers  TickerFactory

	connects    chan Client
	inbox       chan Envelope
	disconnects chan string
	ticks       chan timerTick
	completions chan func()
	queries     chan func()
	done        chan struct{}

	ctx          context.Context
	timerSeq     uint64
	asyncTimeout time.Duration
	async        func(op func(ctx context.Context) func())
	now          func() time.Time
}

// NewEngine wires the engine. rooms, users and notifier may be nil.
func NewEngine(codes CodeGenerator, tickers TickerFactory, rooms RoomStore, users UserStore, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	e := &Engine{
		registry:     NewRegistry(codes),
		clients:      make(map[string]*clientState),
		rooms:        rooms,
		users:        users,
		notifier:     notifier,
		tickers:      tickers,
		connects:     make(chan Client, 64),
		inbox:        make(chan Envelope, 1024),
		disconnects:  make(chan string, 64),
		ticks:        make(chan timerTick, 256),
		completions:  make(chan func(), 256),
		queries:      make(chan func(), 64),
		done:         make(chan struct{}),
		ctx:          context.Background(),
		asyncTimeout: defaultAsyncTimeout,
		now:          time.Now,
	}
	e.async = e.goAsync
	e.handlers = map[string]func(request){
		evCreateRoom:   e.handleCreateRoom,
		evJoinRoom:     e.handleJoinRoom,
		evLeaveRoom:    e.handleLeaveRoom,
		evDraw:         e.handleDraw,
		evStrokeEnd:    e.handleStrokeEnd,
		evClearCanvas:  e.handleClearCanvas,
		evCursorMove:   e.handleCursorMove,
		evSaveSnapshot: e.handleSaveSnapshot,

		evGameCreate:    e.handleGameCreate,
		evGameJoin:      e.handleGameJoin,
		evGameReady:     e.handleGameReady,
		evGameStart:     e.handleGameStart,
		evGameGuess:     e.handleGameGuess,
		evGameDraw:      e.handleGameDraw,
		evGameClear:     e.handleGameClear,
		evGameNextRound: e.handleGameNextRound,
		evGameRestart:   e.handleGameRestart,
		evGameLeave:     e.handleGameLeave,
	}
	if rooms == nil || users == nil {
		log.Warn().Msg("persistence disabled, durable rooms and user stats are unavailable")
	}
	return e
}

// Run processes events until ctx is cancelled. Every live timer is cancelled before Run
// returns.
func (e *Engine) Run(ctx context.Context, started chan struct{}) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.ctx = ctx
	defer close(e.done)

	close(started)

	for {
		select {
		case <-ctx.Done():
			e.stopAllTimers()
			log.Info().Msg("session engine stopped")
			return
		case c := <-e.connects:
			e.handleConnect(c)
		case env := <-e.inbox:
			e.handleEnvelope(env)
		case id := <-e.disconnects:
			e.handleDisconnect(id)
		case tick := <-e.ticks:
			e.handleTick(tick)
		case apply := <-e.completions:
			apply()
		case q := <-e.queries:
			q()
		}
	}
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) Connect(ctx context.Context, c Client) bool {
	select {
	case e.connects <- c:
		return true
	case <-ctx.Done():
	case <-e.done:
	}
	return false
}

func (e *Engine) Dispatch(ctx context.Context, env Envelope) {
	select {
	case e.inbox <- env:
	case <-ctx.Done():
	case <-e.done:
	}
}

func (e *Engine) Disconnect(id string) {
	select {
	case e.disconnects <- id:
	case <-e.done:
	}
}

func (e *Engine) Stats(ctx context.Context) (Stats, bool) {
	var s Stats
	ok := e.query(ctx, func() {
		s.ActiveRooms, s.ActiveGames = e.registry.Counts()
	})
	return s, ok
}

func (e *Engine) RoomSummary(ctx context.Context, code string) (RoomSummary, bool) {
	var (
		s     RoomSummary
		found bool
	)
	ok := e.query(ctx, func() {
		room, exists := e.registry.Room(code)
		if !exists {
			return
		}
		found = true
		s = RoomSummary{Code: room.Code(), ParticipantCount: room.Len(), CreatedAt: room.CreatedAt(), IsActive: true}
	})
	return s, ok && found
}

func (e *Engine) GameSummary(ctx context.Context, code string) (GameSummary, bool) {
	var (
		s     GameSummary
		found bool
	)
	ok := e.query(ctx, func() {
		g, exists := e.registry.Game(code)
		if !exists {
			return
		}
		found = true
		s = GameSummary{
			Code:        g.Code(),
			Status:      g.Status(),
			PlayerCount: g.Len(),
			MaxPlayers:  g.Settings().MaxPlayers,
			CreatedAt:   g.CreatedAt(),
		}
	})
	return s, ok && found
}

func (e *Engine) query(ctx context.Context, fn func()) bool {
	finished := make(chan struct{})
	select {
	case e.queries <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return false
	case <-e.done:
		return false
	}
	select {
	case <-finished:
		return true
	case <-ctx.Done():
	case <-e.done:
	}
	return false
}

// goAsync runs op away from the loop under a deadline and applies the closure it returns
// back on the loop.
func (e *Engine) goAsync(op func(ctx context.Context) func()) {
	parent := e.ctx
	go func() {
		ctx, cancel := context.WithTimeout(parent, e.asyncTimeout)
		defer cancel()
		apply := op(ctx)
		if apply == nil {
			return
		}
		select {
		case e.completions <- apply:
		case <-e.done:
		}
	}()
}

func (e *Engine) handleConnect(c Client) {
	e.clients[c.Id()] = &clientState{client: c}
	log.Debug().Str("conn", c.Id()).Str("user", c.UserId()).Msg("connection registered")
}

func (e *Engine) handleDisconnect(id string) {
	cs, ok := e.clients[id]
	if !ok {
		return
	}
	e.leaveRoom(cs)
	e.leaveGame(cs)
	delete(e.clients, id)
	log.Debug().Str("conn", id).Msg("connection released")
}

func (e *Engine) handleEnvelope(env Envelope) {
	cs, ok := e.clients[env.From]
	if !ok {
		return
	}
	req := request{cs: cs, ack: env.Ack, data: env.Data}
	handler, ok := e.handlers[env.Event]
	if !ok {
		e.fail(req, ErrUnknownEvent)
		return
	}
	handler(req)
}

// live reports whether cs still belongs to a registered connection.
func (e *Engine) live(cs *clientState) bool {
	current, ok := e.clients[cs.client.Id()]
	return ok && current == cs
}

func (e *Engine) reply(req request, payload gin.H) {
	if req.ack == nil {
		return
	}
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	req.cs.client.Send(encodeFrame(evAck, req.ack, payload))
}

func (e *Engine) fail(req request, err error) {
	log.Debug().Err(err).Str("conn", req.cs.client.Id()).Msg("request rejected")
	if req.ack == nil {
		return
	}
	req.cs.client.Send(encodeFrame(evAck, req.ack, failurePayload(err)))
}

func (e *Engine) sendTo(id, event string, data any) {
	cs, ok := e.clients[id]
	if !ok {
		return
	}
	if frame := encodeFrame(event, nil, data); frame != nil {
		cs.client.Send(frame)
	}
}

// multicast encodes once and delivers to every id except skip.
func (e *Engine) multicast(ids []string, skip, event string, data any) {
	frame := encodeFrame(event, nil, data)
	if frame == nil {
		return
	}
	for _, id := range ids {
		if id == skip {
			continue
		}
		if cs, ok := e.clients[id]; ok {
			cs.client.Send(frame)
		}
	}
}

func (e *Engine) broadcastRoom(room *Room, skip, event string, data any) {
	e.multicast(room.ParticipantIds(), skip, event, data)
}

func (e *Engine) broadcastGame(g *Game, skip, event string, data any) {
	e.multicast(g.PlayerIds(), skip, event, data)
}

func (e *Engine) notify(subject string, v any) {
	e.notifier.Notify(subject, v)
}

func (e *Engine) displayName(cs *clientState, requested string) string {
	if requested != "" {
		return requested
	}
	return cs.client.Name()
}
