package session

import (
	"context"
	"drawit/domain"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- Dispatcher ---

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, env Envelope) {
	m.Called(ctx, env)
}

func (m *MockDispatcher) Disconnect(id string) {
	m.Called(id)
}

// --- RoomStore ---

type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) CreateDurableRoom(ctx context.Context, code, hostUserId string) (domain.DurableRoom, error) {
	args := m.Called(ctx, code, hostUserId)
	return args.Get(0).(domain.DurableRoom), args.Error(1)
}

func (m *MockRoomStore) FindActiveRoom(ctx context.Context, code string) (domain.DurableRoom, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.DurableRoom), args.Error(1)
}

func (m *MockRoomStore) AddRoomParticipant(ctx context.Context, roomId, userId string) error {
	args := m.Called(ctx, roomId, userId)
	return args.Error(0)
}

func (m *MockRoomStore) RemoveRoomParticipant(ctx context.Context, roomId, userId string) error {
	args := m.Called(ctx, roomId, userId)
	return args.Error(0)
}

func (m *MockRoomStore) SaveRoomSnapshot(ctx context.Context, roomId string, snapshot []byte) error {
	args := m.Called(ctx, roomId, snapshot)
	return args.Error(0)
}

// --- UserStore ---

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserById(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserStore) IncrementUserStat(ctx context.Context, id string, stat domain.UserStat) error {
	args := m.Called(ctx, id, stat)
	return args.Error(0)
}

// --- Notifier ---

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(subject string, v any) {
	m.Called(subject, v)
}

// --- TokenVerifier ---

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

// --- CodeGenerator ---

type sequentialCodes struct {
	n int
}

func (s *sequentialCodes) Generate() string {
	s.n++
	return fmt.Sprintf("CODE%02d", s.n)
}

type fixedCodes struct {
	codes []string
	i     int
}

func (f *fixedCodes) Generate() string {
	c := f.codes[f.i%len(f.codes)]
	f.i++
	return c
}

// --- TickerFactory ---

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

type manualTickers struct {
	mu      sync.Mutex
	created []*manualTicker
}

func (m *manualTickers) Create(d time.Duration) (<-chan time.Time, func()) {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	m.mu.Lock()
	m.created = append(m.created, t)
	m.mu.Unlock()
	var once sync.Once
	return t.ch, func() { once.Do(func() { close(t.stopped) }) }
}

func (m *manualTickers) last() *manualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.created) == 0 {
		return nil
	}
	return m.created[len(m.created)-1]
}

func (m *manualTickers) all() []*manualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*manualTicker(nil), m.created...)
}

// --- Client ---

type sentFrame struct {
	Event string          `json:"event"`
	Ack   *int64          `json:"ack"`
	Data  json.RawMessage `json:"data"`
}

type recordingClient struct {
	id     string
	userId string
	name   string

	mu     sync.Mutex
	frames []sentFrame
}

func newClient(id string) *recordingClient {
	return &recordingClient{id: id}
}

func (c *recordingClient) Id() string { return c.id }
func (c *recordingClient) UserId() string { return c.userId }
func (c *recordingClient) Name() string { return c.name }

func (c *recordingClient) Send(data []byte) {
	if data == nil {
		return
	}
	var f sentFrame
	if err := json.Unmarshal(data, &f); err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
}

func (c *recordingClient) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		res = append(res, f.Event)
	}
	return res
}

// take returns the recorded event names and forgets them.
func (c *recordingClient) take() []string {
	res := c.events()
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
	return res
}

// lastData decodes the payload of the most recent frame named event into v.
func (c *recordingClient) lastData(event string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].Event == event {
			if err := json.Unmarshal(c.frames[i].Data, v); err != nil {
				panic(err)
			}
			return true
		}
	}
	return false
}
