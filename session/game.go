package session

import (
	"drawit/words"
	"encoding/json"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"time"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusRoundEnd Status = "roundEnd"
	StatusGameEnd  Status = "gameEnd"
)

type TurnOutcome string

const (
	OutcomeNextTurn TurnOutcome = "nextTurn"
	OutcomeRoundEnd TurnOutcome = "roundEnd"
	OutcomeGameEnd  TurnOutcome = "gameEnd"
)

const (
	MessageChat    = "chat"
	MessageCorrect = "correct"

	correctGuessMessage = "🎉 Guessed correctly!"
	maxMessages         = 50
	minPlayersToStart   = 2
)

type Settings struct {
	MaxPlayers  int              `json:"maxPlayers"`
	RoundTime   int              `json:"roundTime"`
	TotalRounds int              `json:"totalRounds"`
	Difficulty  words.Difficulty `json:"difficulty"`
}

func DefaultSettings() Settings {
	return Settings{MaxPlayers: 8, RoundTime: 60, TotalRounds: 3, Difficulty: words.Medium}
}

// WithDefaults fills every zero field from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.MaxPlayers == 0 {
		s.MaxPlayers = d.MaxPlayers
	}
	if s.RoundTime == 0 {
		s.RoundTime = d.RoundTime
	}
	if s.TotalRounds == 0 {
		s.TotalRounds = d.TotalRounds
	}
	if s.Difficulty == "" {
		s.Difficulty = d.Difficulty
	}
	return s
}

func (s Settings) Validate() error {
	switch {
	case s.MaxPlayers < 2 || s.MaxPlayers > 20:
		return fmt.Errorf("%w: maxPlayers must be between 2 and 20", ErrInvalidSettings)
	case s.RoundTime < 10 || s.RoundTime > 300:
		return fmt.Errorf("%w: roundTime must be between 10 and 300 seconds", ErrInvalidSettings)
	case s.TotalRounds < 1 || s.TotalRounds > 10:
		return fmt.Errorf("%w: totalRounds must be between 1 and 10", ErrInvalidSettings)
	case !words.Valid(s.Difficulty):
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidSettings, s.Difficulty)
	}
	return nil
}

type Player struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"isHost"`
	IsReady bool   `json:"isReady"`
	Avatar  string `json:"avatar"`
	Color   string `json:"color"`
}

type Message struct {
	Id         int64  `json:"id"`
	PlayerId   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp"`
}

type Standing struct {
	Player
	Score int `json:"score"`
}

type TurnInfo struct {
	DrawerId   string
	DrawerName string
	Word       string
	Hint       string
}

type GuessResult struct {
	Correct        bool
	Points         int
	IsDrawer       bool
	AlreadyGuessed bool
}

// GameState is the snapshot broadcast to every participant. It never carries the word.
type GameState struct {
	GameCode        string         `json:"gameCode"`
	Status          Status         `json:"status"`
	Players         []Player       `json:"players"`
	HostId          string         `json:"hostId"`
	Settings        Settings       `json:"settings"`
	CurrentRound    int            `json:"currentRound"`
	TotalRounds     int            `json:"totalRounds"`
	CurrentTurn     int            `json:"currentTurn"`
	CurrentDrawerId string         `json:"currentDrawerId"`
	WordHint        string         `json:"wordHint"`
	TimeLeft        int            `json:"timeLeft"`
	Scores          map[string]int `json:"scores"`
	CorrectGuessers []string       `json:"correctGuessers"`
	Messages        []Message      `json:"messages"`
}

// Game is one drawing-guessing match. It is only touched from the engine goroutine.
type Game struct {
	code            string
	hostId          string
	players         map[string]*Player
	order           []string
	joinCount       int
	status          Status
	settings        Settings
	currentRound    int
	currentTurn     int
	currentDrawerId string
	currentWord     string
	wordHint        string
	timeLeft        int
	scores          map[string]int
	correctGuessers []string
	messages        []Message
	nextMessageId   int64
	usedWords       []string
	drawHistory     []json.RawMessage
	createdAt       time.Time
	timer           *turnTimer

	intn  func(n int) int
	clock func() time.Time
}

func NewGame(code, hostId string, settings Settings, now time.Time) *Game {
	return &Game{
		code:            code,
		hostId:          hostId,
		players:         make(map[string]*Player),
		order:           make([]string, 0, settings.MaxPlayers),
		status:          StatusLobby,
		settings:        settings,
		timeLeft:        settings.RoundTime,
		scores:          make(map[string]int),
		correctGuessers: []string{},
		messages:        []Message{},
		usedWords:       []string{},
		drawHistory:     []json.RawMessage{},
		createdAt:       now,
		intn:            rand.IntN,
		clock:           time.Now,
	}
}

func (g *Game) Code() string { return g.code }
func (g *Game) HostId() string { return g.hostId }
func (g *Game) Status() Status { return g.status }
func (g *Game) Settings() Settings { return g.settings }
func (g *Game) CurrentRound() int { return g.currentRound }
func (g *Game) CurrentTurn() int { return g.currentTurn }
func (g *Game) CurrentDrawerId() string { return g.currentDrawerId }
func (g *Game) CurrentWord() string { return g.currentWord }
func (g *Game) WordHint() string { return g.wordHint }
func (g *Game) TimeLeft() int { return g.timeLeft }
func (g *Game) CreatedAt() time.Time { return g.createdAt }
func (g *Game) Len() int { return len(g.players) }

func (g *Game) AddPlayer(id, name string) Player {
	if _, exists := g.players[id]; !exists {
		g.order = append(g.order, id)
	}
	isHost := id == g.hostId
	p := &Player{
		Id:      id,
		Name:    name,
		IsHost:  isHost,
		IsReady: isHost,
		Avatar:  avatarInitial(name),
		Color:   fmt.Sprintf("hsl(%d, 70%%, 60%%)", (g.joinCount*45)%360),
	}
	g.joinCount++
	g.players[id] = p
	g.scores[id] = 0
	return *p
}

// RemovePlayer drops the player and its score. Host migration and drawer departure are
// handled by the caller.
func (g *Game) RemovePlayer(id string) (Player, bool) {
	p, ok := g.players[id]
	if !ok {
		return Player{}, false
	}
	delete(g.players, id)
	delete(g.scores, id)
	g.order = slices.DeleteFunc(g.order, func(x string) bool { return x == id })
	g.correctGuessers = slices.DeleteFunc(g.correctGuessers, func(x string) bool { return x == id })
	return *p, true
}

func (g *Game) Player(id string) (Player, bool) {
	p, ok := g.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (g *Game) Has(id string) bool {
	_, ok := g.players[id]
	return ok
}

func (g *Game) Players() []Player {
	res := make([]Player, 0, len(g.order))
	for _, id := range g.order {
		res = append(res, *g.players[id])
	}
	return res
}

func (g *Game) PlayerIds() []string {
	return slices.Clone(g.order)
}

func (g *Game) SetHost(id string) bool {
	next, ok := g.players[id]
	if !ok {
		return false
	}
	if prev, ok := g.players[g.hostId]; ok {
		prev.IsHost = false
	}
	g.hostId = id
	next.IsHost = true
	return true
}

func (g *Game) SetPlayerReady(id string, ready bool) {
	if p, ok := g.players[id]; ok {
		p.IsReady = ready
	}
}

func (g *Game) CanStart() bool {
	return len(g.players) >= minPlayersToStart
}

func (g *Game) StartGame() TurnInfo {
	g.status = StatusPlaying
	g.currentRound = 1
	g.currentTurn = 0
	g.resetScores()
	info, _ := g.StartNewTurn()
	return info
}

// RandomWord never repeats a word of the tier before the whole tier has been used.
func (g *Game) RandomWord() string {
	tier := words.Tier(g.settings.Difficulty)
	if len(tier) == 0 {
		return ""
	}
	available := make([]string, 0, len(tier))
	for _, w := range tier {
		if !slices.Contains(g.usedWords, w) {
			available = append(available, w)
		}
	}
	if len(available) == 0 {
		g.usedWords = g.usedWords[:0]
		available = tier
	}
	word := available[g.intn(len(available))]
	g.usedWords = append(g.usedWords, word)
	return word
}

// StartNewTurn picks the drawer by position in join order. It reports false when the
// game has no players.
func (g *Game) StartNewTurn() (TurnInfo, bool) {
	if len(g.order) == 0 {
		return TurnInfo{}, false
	}
	drawer := g.players[g.order[g.currentTurn%len(g.order)]]

	g.currentDrawerId = drawer.Id
	g.currentWord = g.RandomWord()
	g.wordHint = wordHint(g.currentWord)
	g.timeLeft = g.settings.RoundTime
	g.correctGuessers = []string{}
	g.drawHistory = []json.RawMessage{}

	return TurnInfo{
		DrawerId:   drawer.Id,
		DrawerName: drawer.Name,
		Word:       g.currentWord,
		Hint:       g.wordHint,
	}, true
}

func (g *Game) SubmitGuess(id, name, guess string) GuessResult {
	if id == g.currentDrawerId {
		return GuessResult{IsDrawer: true}
	}
	if slices.Contains(g.correctGuessers, id) {
		return GuessResult{AlreadyGuessed: true}
	}

	correct := strings.ToLower(strings.TrimSpace(guess)) == strings.ToLower(strings.TrimSpace(g.currentWord))

	msg := Message{PlayerId: id, PlayerName: name, Message: guess, Type: MessageChat}
	if correct {
		msg.Message = correctGuessMessage
		msg.Type = MessageCorrect
	}
	g.appendMessage(msg)

	if !correct {
		return GuessResult{}
	}

	points := 100 + (g.timeLeft*50)/g.settings.RoundTime + max(0, 30-10*len(g.correctGuessers))
	g.correctGuessers = append(g.correctGuessers, id)
	g.scores[id] += points

	drawerPoints := 10
	if len(g.correctGuessers) == 1 {
		drawerPoints += 15
	}
	if _, ok := g.players[g.currentDrawerId]; ok {
		g.scores[g.currentDrawerId] += drawerPoints
	}

	return GuessResult{Correct: true, Points: points}
}

// AllGuessed reports whether every non-drawer has found the word this turn.
func (g *Game) AllGuessed() bool {
	nonDrawers := 0
	for _, id := range g.order {
		if id != g.currentDrawerId {
			nonDrawers++
		}
	}
	return len(g.correctGuessers) >= nonDrawers
}

func (g *Game) EndTurn() TurnOutcome {
	turnsPerRound := len(g.players)
	g.currentTurn++

	if g.currentTurn >= turnsPerRound*g.currentRound {
		if g.currentRound >= g.settings.TotalRounds {
			g.status = StatusGameEnd
			return OutcomeGameEnd
		}
		g.currentRound++
		g.status = StatusRoundEnd
		return OutcomeRoundEnd
	}
	return OutcomeNextTurn
}

// ResumeRound moves a game paused at a round boundary back to playing and starts its
// next turn.
func (g *Game) ResumeRound() (TurnInfo, bool) {
	g.status = StatusPlaying
	return g.StartNewTurn()
}

// Tick decrements the countdown and returns the remaining seconds.
func (g *Game) Tick() int {
	if g.timeLeft > 0 {
		g.timeLeft--
	}
	return g.timeLeft
}

// Leaderboard sorts by score descending. Equal scores keep join order.
func (g *Game) Leaderboard() []Standing {
	res := make([]Standing, 0, len(g.order))
	for _, id := range g.order {
		res = append(res, Standing{Player: *g.players[id], Score: g.scores[id]})
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Score > res[j].Score })
	return res
}

func (g *Game) Winner() (Standing, bool) {
	lb := g.Leaderboard()
	if len(lb) == 0 {
		return Standing{}, false
	}
	return lb[0], true
}

// Restart returns to the lobby keeping roster and host.
func (g *Game) Restart() {
	g.status = StatusLobby
	g.currentRound = 0
	g.currentTurn = 0
	g.currentDrawerId = ""
	g.currentWord = ""
	g.wordHint = ""
	g.timeLeft = g.settings.RoundTime
	g.correctGuessers = []string{}
	g.messages = []Message{}
	g.usedWords = []string{}
	g.drawHistory = []json.RawMessage{}
	g.resetScores()
}

// AddDrawPayload records one drawer payload of the current turn. The log is compacted
// like a room's once it grows past maxDrawHistory.
func (g *Game) AddDrawPayload(payload json.RawMessage) {
	g.drawHistory = append(g.drawHistory, payload)
	if len(g.drawHistory) > maxDrawHistory {
		kept := make([]json.RawMessage, compactedDrawHistory, maxDrawHistory)
		copy(kept, g.drawHistory[len(g.drawHistory)-compactedDrawHistory:])
		g.drawHistory = kept
	}
}

func (g *Game) ClearDrawHistory() {
	g.drawHistory = []json.RawMessage{}
}

func (g *Game) DrawHistory() []json.RawMessage {
	return slices.Clone(g.drawHistory)
}

func (g *Game) CorrectGuessers() []string {
	return slices.Clone(g.correctGuessers)
}

func (g *Game) Scores() map[string]int {
	return maps.Clone(g.scores)
}

func (g *Game) Messages() []Message {
	return slices.Clone(g.messages)
}

func (g *Game) UsedWords() []string {
	return slices.Clone(g.usedWords)
}

func (g *Game) State() GameState {
	return GameState{
		GameCode:        g.code,
		Status:          g.status,
		Players:         g.Players(),
		HostId:          g.hostId,
		Settings:        g.settings,
		CurrentRound:    g.currentRound,
		TotalRounds:     g.settings.TotalRounds,
		CurrentTurn:     g.currentTurn,
		CurrentDrawerId: g.currentDrawerId,
		WordHint:        g.wordHint,
		TimeLeft:        g.timeLeft,
		Scores:          g.Scores(),
		CorrectGuessers: g.CorrectGuessers(),
		Messages:        g.Messages(),
	}
}

func (g *Game) resetScores() {
	g.scores = make(map[string]int, len(g.players))
	for id := range g.players {
		g.scores[id] = 0
	}
}

func (g *Game) appendMessage(m Message) {
	g.nextMessageId++
	m.Id = g.nextMessageId
	m.Timestamp = g.clock().UnixMilli()
	g.messages = append(g.messages, m)
	if len(g.messages) > maxMessages {
		g.messages = slices.Clone(g.messages[len(g.messages)-maxMessages:])
	}
}

// wordHint maps letters to "_" and spaces to two spaces, tokens joined by one space.
func wordHint(word string) string {
	parts := make([]string, 0, len(word))
	for _, c := range word {
		if c == ' ' {
			parts = append(parts, "  ")
		} else {
			parts = append(parts, "_")
		}
	}
	return strings.Join(parts, " ")
}

func avatarInitial(name string) string {
	for _, c := range name {
		return strings.ToUpper(string(c))
	}
	return ""
}
