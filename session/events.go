package session

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// inbound
const (
	evCreateRoom   = "create-room"
	evJoinRoom     = "join-room"
	evLeaveRoom    = "leave-room"
	evDraw         = "draw"
	evStrokeEnd    = "stroke-end"
	evClearCanvas  = "clear-canvas"
	evCursorMove   = "cursor-move"
	evSaveSnapshot = "save-snapshot"

	evGameCreate    = "game:create"
	evGameJoin      = "game:join"
	evGameReady     = "game:ready"
	evGameStart     = "game:start"
	evGameGuess     = "game:guess"
	evGameDraw      = "game:draw"
	evGameClear     = "game:clear-canvas"
	evGameNextRound = "game:next-round"
	evGameRestart   = "game:restart"
	evGameLeave     = "game:leave"
)

// outbound
const (
	evAck           = "ack"
	evUserJoined    = "user-joined"
	evUserLeft      = "user-left"
	evHostChanged   = "host-changed"
	evSnapshotSaved = "snapshot-saved"

	evGamePlayerJoined = "game:player-joined"
	evGamePlayerLeft   = "game:player-left"
	evGamePlayerReady  = "game:player-ready"
	evGameStarted      = "game:started"
	evGameHostChanged  = "game:host-changed"
	evGameTimer        = "game:timer"
	evGameWord         = "game:word"
	evGameGuessResult  = "game:guess-result"
	evGameTurnEnd      = "game:turn-end"
	evGameNewTurn      = "game:new-turn"
	evGameEnded        = "game:ended"
	evGameRestarted    = "game:restarted"
)

// Envelope is one decoded client frame, tagged with the sending connection id.
type Envelope struct {
	From  string          `json:"-"`
	Event string          `json:"event"`
	Ack   *int64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Ack   *int64 `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func DecodeEnvelope(from string, raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, ErrUnknownEvent
	}
	env.From = from
	return env, nil
}

func encodeFrame(event string, ack *int64, data any) []byte {
	b, err := json.Marshal(outboundFrame{Event: event, Ack: ack, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return nil
	}
	return b
}

// decodeData tolerates an absent payload, every field then takes its zero value.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrInvalidPayload
	}
	return nil
}

type createRoomRequest struct {
	UserName string `json:"userName"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	UserName string `json:"userName"`
}

type drawRequest struct {
	FromX float64 `json:"fromX"`
	FromY float64 `json:"fromY"`
	ToX   float64 `json:"toX"`
	ToY   float64 `json:"toY"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
	Tool  string  `json:"tool"`
}

type cursorRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type snapshotRequest struct {
	Snapshot string `json:"snapshot"`
}

type gameCreateRequest struct {
	UserName string    `json:"userName"`
	Settings *Settings `json:"settings"`
}

type gameJoinRequest struct {
	GameCode string `json:"gameCode"`
	UserName string `json:"userName"`
}

type readyRequest struct {
	IsReady bool `json:"isReady"`
}

type guessRequest struct {
	Guess string `json:"guess"`
}

func failurePayload(err error) gin.H {
	return gin.H{"success": false, "error": err.Error(), "kind": ErrorKind(err)}
}
