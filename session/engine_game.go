package session

import (
	"drawit/words"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (e *Engine) currentGame(cs *clientState) (*Game, bool) {
	if cs.gameCode == "" {
		return nil, false
	}
	g, ok := e.registry.Game(cs.gameCode)
	if !ok || !g.Has(cs.client.Id()) {
		return nil, false
	}
	return g, true
}

func (e *Engine) handleGameCreate(req request) {
	var body gameCreateRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	name := e.displayName(req.cs, strings.TrimSpace(body.UserName))
	if name == "" {
		e.fail(req, ErrMissingUserName)
		return
	}
	var settings Settings
	if body.Settings != nil {
		settings = *body.Settings
	}
	if settings.Difficulty != "" {
		if d, ok := words.ParseDifficulty(string(settings.Difficulty)); ok {
			settings.Difficulty = d
		}
	}
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		e.fail(req, err)
		return
	}

	e.leaveGame(req.cs)

	id := req.cs.client.Id()
	g, err := e.registry.CreateGame(id, name, settings)
	if err != nil {
		e.fail(req, err)
		return
	}
	req.cs.gameCode = g.Code()

	log.Info().Str("game", g.Code()).Str("conn", id).Msg("game created")
	e.notify(SubjectSessionCreated, SessionEvent{Kind: "game", Code: g.Code(), At: e.now().UnixMilli()})

	e.reply(req, gin.H{"gameCode": g.Code(), "gameState": g.State()})
}

func (e *Engine) handleGameJoin(req request) {
	var body gameJoinRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	code := NormalizeCode(body.GameCode)
	if code == "" {
		e.fail(req, ErrMissingCode)
		return
	}
	name := e.displayName(req.cs, strings.TrimSpace(body.UserName))
	if name == "" {
		e.fail(req, ErrMissingUserName)
		return
	}

	g, ok := e.registry.Game(code)
	if !ok {
		e.fail(req, ErrGameNotFound)
		return
	}
	id := req.cs.client.Id()
	if g.Has(id) {
		e.reply(req, gin.H{"gameCode": g.Code(), "gameState": g.State(), "drawHistory": g.DrawHistory()})
		if g.Status() == StatusPlaying && id == g.CurrentDrawerId() {
			e.sendTo(id, evGameWord, gin.H{"word": g.CurrentWord()})
		}
		return
	}
	if g.Status() != StatusLobby {
		e.fail(req, ErrGameInProgress)
		return
	}
	if g.Len() >= g.Settings().MaxPlayers {
		e.fail(req, ErrGameFull)
		return
	}

	e.leaveGame(req.cs)

	player := g.AddPlayer(id, name)
	req.cs.gameCode = g.Code()

	log.Info().Str("game", g.Code()).Str("conn", id).Msg("player joined game")

	state := g.State()
	e.broadcastGame(g, id, evGamePlayerJoined, gin.H{"player": player, "gameState": state})
	e.reply(req, gin.H{"gameCode": g.Code(), "gameState": state})
}

func (e *Engine) handleGameReady(req request) {
	g, ok := e.currentGame(req.cs)
	if !ok {
		e.fail(req, ErrNoActiveGame)
		return
	}
	var body readyRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	id := req.cs.client.Id()
	g.SetPlayerReady(id, body.IsReady)
	e.broadcastGame(g, "", evGamePlayerReady, gin.H{"playerId": id, "isReady": body.IsReady, "gameState": g.State()})
	e.reply(req, nil)
}

func (e *Engine) handleGameStart(req request) {
	g, ok := e.currentGame(req.cs)
	switch {
	case !ok:
		e.fail(req, ErrNoActiveGame)
		return
	case req.cs.client.Id() != g.HostId():
		e.fail(req, ErrNotHost)
		return
	case g.Status() != StatusLobby:
		e.fail(req, ErrGameInProgress)
		return
	case !g.CanStart():
		e.fail(req, ErrNotEnoughPlayers)
		return
	}

	info := g.StartGame()
	e.startTimer(g)

	log.Info().Str("game", g.Code()).Int("players", g.Len()).Msg("game started")

	e.broadcastGame(g, "", evGameStarted, gin.H{"gameState": g.State()})
	e.sendTo(info.DrawerId, evGameWord, gin.H{"word": info.Word})
	e.reply(req, nil)
}

func (e *Engine) handleGameGuess(req request) {
	g, ok := e.currentGame(req.cs)
	if !ok {
		e.fail(req, ErrNoActiveGame)
		return
	}
	if g.Status() != StatusPlaying {
		e.fail(req, ErrInvalidPhase)
		return
	}
	var body guessRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}

	id := req.cs.client.Id()
	player, _ := g.Player(id)
	res := g.SubmitGuess(id, player.Name, body.Guess)
	switch {
	case res.IsDrawer:
		e.fail(req, ErrDrawerCannotGuess)
		return
	case res.AlreadyGuessed:
		e.fail(req, ErrAlreadyGuessed)
		return
	}

	message := body.Guess
	if res.Correct {
		message = correctGuessMessage
	}
	e.broadcastGame(g, "", evGameGuessResult, gin.H{
		"playerId":   id,
		"playerName": player.Name,
		"correct":    res.Correct,
		"points":     res.Points,
		"message":    message,
		"gameState":  g.State(),
	})
	e.reply(req, gin.H{"correct": res.Correct, "points": res.Points})

	if res.Correct && g.AllGuessed() {
		e.endTurn(g)
	}
}

// handleGameDraw relays the drawer's payload untouched. Anyone else is ignored.
func (e *Engine) handleGameDraw(req request) {
	g, ok := e.currentGame(req.cs)
	id := req.cs.client.Id()
	if !ok || g.Status() != StatusPlaying || id != g.CurrentDrawerId() {
		return
	}
	if len(req.data) == 0 {
		return
	}
	g.AddDrawPayload(req.data)
	e.broadcastGame(g, id, evGameDraw, req.data)
}

func (e *Engine) handleGameClear(req request) {
	g, ok := e.currentGame(req.cs)
	if !ok || g.Status() != StatusPlaying || req.cs.client.Id() != g.CurrentDrawerId() {
		return
	}
	g.ClearDrawHistory()
	e.broadcastGame(g, "", evGameClear, nil)
}

func (e *Engine) handleGameNextRound(req request) {
	g, ok := e.currentGame(req.cs)
	switch {
	case !ok:
		e.fail(req, ErrNoActiveGame)
		return
	case req.cs.client.Id() != g.HostId():
		e.fail(req, ErrNotHost)
		return
	case g.Status() != StatusRoundEnd:
		e.fail(req, ErrInvalidPhase)
		return
	}

	info, ok := g.ResumeRound()
	if ok {
		e.beginTurn(g, info)
	}
	e.reply(req, nil)
}

func (e *Engine) handleGameRestart(req request) {
	g, ok := e.currentGame(req.cs)
	switch {
	case !ok:
		e.fail(req, ErrNoActiveGame)
		return
	case req.cs.client.Id() != g.HostId():
		e.fail(req, ErrNotHost)
		return
	}

	e.stopTimer(g)
	g.Restart()

	log.Info().Str("game", g.Code()).Msg("game restarted")

	e.broadcastGame(g, "", evGameRestarted, gin.H{"gameState": g.State()})
	e.reply(req, nil)
}

func (e *Engine) handleGameLeave(req request) {
	if _, ok := e.currentGame(req.cs); !ok {
		e.fail(req, ErrNoActiveGame)
		return
	}
	e.leaveGame(req.cs)
	e.reply(req, nil)
}

func (e *Engine) beginTurn(g *Game, info TurnInfo) {
	e.startTimer(g)
	e.broadcastGame(g, "", evGameNewTurn, gin.H{"gameState": g.State()})
	e.sendTo(info.DrawerId, evGameWord, gin.H{"word": info.Word})
}

// endTurn is the single turn-end path shared by the timer, the all-guessed check and
// drawer departure.
func (e *Engine) endTurn(g *Game) {
	e.stopTimer(g)
	word := g.CurrentWord()
	outcome := g.EndTurn()

	e.broadcastGame(g, "", evGameTurnEnd, gin.H{"word": word, "result": outcome, "gameState": g.State()})

	switch outcome {
	case OutcomeNextTurn:
		if info, ok := g.StartNewTurn(); ok {
			e.beginTurn(g, info)
		}
	case OutcomeGameEnd:
		leaderboard := g.Leaderboard()
		var winner *Standing
		if w, ok := g.Winner(); ok {
			winner = &w
		}
		e.broadcastGame(g, "", evGameEnded, gin.H{"winner": winner, "leaderboard": leaderboard, "gameState": g.State()})

		log.Info().Str("game", g.Code()).Msg("game ended")
		e.notify(SubjectGameEnded, GameEndedEvent{Code: g.Code(), Winner: winner, Leaderboard: leaderboard, At: e.now().UnixMilli()})
	}
}

// leaveGame is the single departure path for explicit leaves, game switches and
// disconnects. Host migration and drawer departure are independent.
func (e *Engine) leaveGame(cs *clientState) {
	g, ok := e.currentGame(cs)
	cs.gameCode = ""
	if !ok {
		return
	}
	id := cs.client.Id()
	wasDrawer := g.Status() == StatusPlaying && g.CurrentDrawerId() == id
	p, _ := g.RemovePlayer(id)

	log.Info().Str("game", g.Code()).Str("conn", id).Msg("player left game")

	if g.Len() == 0 {
		e.stopTimer(g)
		e.registry.DeleteGame(g.Code())
		log.Info().Str("game", g.Code()).Msg("game deleted")
		e.notify(SubjectSessionDeleted, SessionEvent{Kind: "game", Code: g.Code(), At: e.now().UnixMilli()})
		return
	}

	e.broadcastGame(g, "", evGamePlayerLeft, gin.H{"playerId": id, "playerName": p.Name, "gameState": g.State()})

	if id == g.HostId() {
		next := g.Players()[0]
		g.SetHost(next.Id)
		e.broadcastGame(g, "", evGameHostChanged, gin.H{"newHostId": next.Id, "newHostName": next.Name, "gameState": g.State()})
	}

	switch {
	case wasDrawer:
		e.endTurn(g)
	case g.Status() == StatusPlaying && g.AllGuessed():
		e.endTurn(g)
	}
}
