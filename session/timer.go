package session

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// TickerFactory hands out periodic tick channels together with the func that stops them.
type TickerFactory interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type tickerGen struct{}

func (tickerGen) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewTickerGen() TickerFactory {
	return tickerGen{}
}

type turnTimer struct {
	token  uint64
	cancel context.CancelFunc
}

type timerTick struct {
	code  string
	token uint64
}

// startTimer replaces any running timer of g with a fresh one-second countdown. Ticks are
// forwarded into the engine loop tagged with the timer token.
func (e *Engine) startTimer(g *Game) {
	e.stopTimer(g)

	e.timerSeq++
	token := e.timerSeq
	ctx, cancel := context.WithCancel(e.ctx)
	ticks, stop := e.tickers.Create(time.Second)
	g.timer = &turnTimer{token: token, cancel: cancel}

	code := g.Code()
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				select {
				case e.ticks <- timerTick{code: code, token: token}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (e *Engine) stopTimer(g *Game) {
	if g.timer == nil {
		return
	}
	g.timer.cancel()
	g.timer = nil
}

func (e *Engine) stopAllTimers() {
	for _, g := range e.registry.Games() {
		e.stopTimer(g)
	}
}

func (e *Engine) handleTick(tick timerTick) {
	g, ok := e.registry.Game(tick.code)
	if !ok || g.timer == nil || g.timer.token != tick.token {
		return
	}
	if g.Status() != StatusPlaying {
		e.stopTimer(g)
		return
	}

	left := g.Tick()
	e.broadcastGame(g, "", evGameTimer, gin.H{"timeLeft": left})
	if left <= 0 {
		e.endTurn(g)
	}
}
