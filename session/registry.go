package session

import (
	"drawit/domain"
	"strings"
	"time"
)

// Registry maps session codes to live rooms and games. Rooms and games live in separate
// maps, a code is unique only within its own map.
type Registry struct {
	rooms map[string]*Room
	games map[string]*Game
	codes CodeGenerator
	now   func() time.Time
}

func NewRegistry(codes CodeGenerator) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		games: make(map[string]*Game),
		codes: codes,
		now:   time.Now,
	}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (reg *Registry) CreateRoom(hostId, hostUserId, hostName string, durable *domain.DurableRoom) (*Room, error) {
	code, err := uniqueCode(reg.codes, func(c string) bool {
		_, taken := reg.rooms[c]
		return taken
	})
	if err != nil {
		return nil, err
	}
	now := reg.now()
	room := NewRoom(code, hostId, durable, now)
	room.AddParticipant(hostId, hostUserId, hostName, now)
	reg.rooms[code] = room
	return room, nil
}

// RestoreRoom registers a room rebuilt from the durable store under its stored code.
// It has no live host until someone joins.
func (reg *Registry) RestoreRoom(durable *domain.DurableRoom) *Room {
	code := NormalizeCode(durable.Code)
	if room, ok := reg.rooms[code]; ok {
		return room
	}
	room := NewRoom(code, "", durable, reg.now())
	reg.rooms[code] = room
	return room
}

func (reg *Registry) CreateGame(hostId, hostName string, settings Settings) (*Game, error) {
	code, err := uniqueCode(reg.codes, func(c string) bool {
		_, taken := reg.games[c]
		return taken
	})
	if err != nil {
		return nil, err
	}
	game := NewGame(code, hostId, settings, reg.now())
	game.AddPlayer(hostId, hostName)
	reg.games[code] = game
	return game, nil
}

func (reg *Registry) Room(code string) (*Room, bool) {
	room, ok := reg.rooms[NormalizeCode(code)]
	return room, ok
}

func (reg *Registry) Game(code string) (*Game, bool) {
	game, ok := reg.games[NormalizeCode(code)]
	return game, ok
}

func (reg *Registry) DeleteRoom(code string) {
	delete(reg.rooms, NormalizeCode(code))
}

// DeleteGame does not stop the game timer, the engine does that first.
func (reg *Registry) DeleteGame(code string) {
	delete(reg.games, NormalizeCode(code))
}

func (reg *Registry) Counts() (rooms, games int) {
	return len(reg.rooms), len(reg.games)
}

func (reg *Registry) Games() []*Game {
	res := make([]*Game, 0, len(reg.games))
	for _, g := range reg.games {
		res = append(res, g)
	}
	return res
}
