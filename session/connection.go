package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	outboxSize = 256

	// drawing streams many small frames per second
	inboundRate  = 120
	inboundBurst = 240
)

type Dispatcher interface {
	Dispatch(ctx context.Context, env Envelope)
	Disconnect(id string)
}

// Connection pumps frames between one websocket and the engine.
type Connection struct {
	id      string
	userId  string
	name    string
	socket  WebsocketConnection
	limiter *rate.Limiter
	outbox  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	reason    string
}

func NewConnection(id, userId, name string, socket WebsocketConnection) *Connection {
	return &Connection{
		id:      id,
		userId:  userId,
		name:    name,
		socket:  socket,
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
		outbox:  make(chan []byte, outboxSize),
		closed:  make(chan struct{}),
	}
}

func (c *Connection) Id() string { return c.id }
func (c *Connection) UserId() string { return c.userId }
func (c *Connection) Name() string { return c.name }

// Send never blocks the caller. A connection whose outbox is full is dropped.
func (c *Connection) Send(data []byte) {
	if data == nil {
		return
	}
	if c.isClosed() {
		return
	}
	select {
	case c.outbox <- data:
	default:
		log.Warn().Str("conn", c.id).Msg("outbox full, dropping connection")
		c.shutdown("slow-consumer")
	}
}

func (c *Connection) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Connection) shutdown(reason string) {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.closed)
	})
}

func (c *Connection) ReadPump(ctx context.Context, engine Dispatcher) {
	defer func() {
		c.shutdown("")
		engine.Disconnect(c.id)
	}()

	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			continue
		}
		env, err := DecodeEnvelope(c.id, data)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("dropping malformed frame")
			continue
		}
		engine.Dispatch(ctx, env)
	}
}

func (c *Connection) WritePump(tickers TickerFactory) {
	ping, stop := tickers.Create(pingPeriod)
	defer stop()

loop:
	for {
		select {
		case data := <-c.outbox:
			if err := c.socket.Write(data); err != nil {
				c.shutdown("")
				break loop
			}
		case <-ping:
			if err := c.socket.Ping(); err != nil {
				c.shutdown("")
				break loop
			}
		case <-c.closed:
			break loop
		}
	}

	<-c.closed
	c.socket.Close(c.reason)
}
