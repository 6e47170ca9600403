package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveTick(t *testing.T, e *Engine) timerTick {
	t.Helper()
	select {
	case tick := <-e.ticks:
		return tick
	case <-time.After(time.Second):
		t.Fatal("no tick forwarded")
		return timerTick{}
	}
}

func waitStopped(t *testing.T, mt *manualTicker) {
	t.Helper()
	select {
	case <-mt.stopped:
	case <-time.After(time.Second):
		t.Fatal("ticker was not stopped")
	}
}

func TestTimer_ForwardsTaggedTicks(t *testing.T) {
	t.Parallel()
	e, tickers := newTestEngine(nil, nil, nil)
	g, err := e.registry.CreateGame("h", "Host", DefaultSettings())
	require.NoError(t, err)

	e.startTimer(g)
	first := tickers.last()
	first.ch <- time.Now()
	tick := receiveTick(t, e)
	assert.Equal(t, timerTick{code: g.Code(), token: g.timer.token}, tick)

	e.startTimer(g)
	waitStopped(t, first)
	assert.NotEqual(t, tick.token, g.timer.token, "a restarted timer gets a fresh token")

	e.stopTimer(g)
	assert.Nil(t, g.timer)
	waitStopped(t, tickers.last())
	e.stopTimer(g)
}

func TestTimer_StopAllOnShutdown(t *testing.T) {
	t.Parallel()
	e, tickers := newTestEngine(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	e.ctx = ctx

	for _, host := range []string{"a", "b"} {
		g, err := e.registry.CreateGame(host, host, DefaultSettings())
		require.NoError(t, err)
		e.startTimer(g)
	}
	cancel()

	for _, mt := range tickers.all() {
		waitStopped(t, mt)
	}
}

func TestTimer_TickOutsidePlayStopsTimer(t *testing.T) {
	t.Parallel()
	e, tickers := newTestEngine(nil, nil, nil)
	host := newClient("h")
	connect(e, host)
	g, err := e.registry.CreateGame("h", "Host", DefaultSettings())
	require.NoError(t, err)

	e.startTimer(g)
	tick(e, g)

	assert.Nil(t, g.timer)
	waitStopped(t, tickers.last())
	assert.Equal(t, DefaultSettings().RoundTime, g.TimeLeft(), "a lobby never counts down")
}
