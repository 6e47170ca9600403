package session

import (
	"context"
	"drawit/domain"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (e *Engine) currentRoom(cs *clientState) (*Room, bool) {
	if cs.roomCode == "" {
		return nil, false
	}
	room, ok := e.registry.Room(cs.roomCode)
	if !ok || !room.Has(cs.client.Id()) {
		return nil, false
	}
	return room, true
}

func (e *Engine) handleCreateRoom(req request) {
	var body createRoomRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	name := e.displayName(req.cs, strings.TrimSpace(body.UserName))
	if name == "" {
		e.fail(req, ErrMissingUserName)
		return
	}

	e.leaveRoom(req.cs)

	id, userId := req.cs.client.Id(), req.cs.client.UserId()
	room, err := e.registry.CreateRoom(id, userId, name, nil)
	if err != nil {
		e.fail(req, err)
		return
	}
	req.cs.roomCode = room.Code()

	log.Info().Str("room", room.Code()).Str("conn", id).Msg("room created")
	e.notify(SubjectSessionCreated, SessionEvent{Kind: "room", Code: room.Code(), At: e.now().UnixMilli()})

	if userId != "" && e.rooms != nil {
		e.persistRoom(room.Code(), userId)
	}

	e.reply(req, gin.H{"roomCode": room.Code(), "participants": room.Participants()})
}

// persistRoom creates the durable record of a room owned by an authenticated user. The live
// room works without it, a failure only costs durability.
func (e *Engine) persistRoom(code, userId string) {
	rooms, users := e.rooms, e.users
	e.async(func(ctx context.Context) func() {
		durable, err := rooms.CreateDurableRoom(ctx, code, userId)
		if err != nil {
			log.Error().Err(err).Str("room", code).Msg("failed to persist room")
			return nil
		}
		if users != nil {
			if err := users.IncrementUserStat(ctx, userId, domain.StatRoomsCreated); err != nil {
				log.Warn().Err(err).Str("user", userId).Msg("failed to update user stats")
			}
		}
		return func() {
			if room, ok := e.registry.Room(code); ok {
				room.SetDurable(&durable)
			}
		}
	})
}

func (e *Engine) handleJoinRoom(req request) {
	var body joinRoomRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	code := NormalizeCode(body.RoomCode)
	if code == "" {
		e.fail(req, ErrMissingCode)
		return
	}
	name := e.displayName(req.cs, strings.TrimSpace(body.UserName))
	if name == "" {
		e.fail(req, ErrMissingUserName)
		return
	}

	if room, ok := e.registry.Room(code); ok {
		e.joinRoom(req, room, name)
		return
	}
	if e.rooms == nil {
		e.fail(req, ErrRoomNotFound)
		return
	}

	rooms := e.rooms
	e.async(func(ctx context.Context) func() {
		durable, err := rooms.FindActiveRoom(ctx, code)
		return func() {
			if !e.live(req.cs) {
				return
			}
			switch {
			case errors.Is(err, domain.ErrDurableRoomNotFound):
				e.fail(req, ErrRoomNotFound)
			case err != nil:
				log.Error().Err(err).Str("room", code).Msg("durable room lookup failed")
				e.fail(req, fmt.Errorf("%w: %w", ErrPersistenceFailed, err))
			default:
				room := e.registry.RestoreRoom(&durable)
				log.Info().Str("room", room.Code()).Msg("room restored from store")
				e.joinRoom(req, room, name)
			}
		}
	})
}

func (e *Engine) joinRoom(req request, room *Room, name string) {
	cs := req.cs
	if cs.roomCode != room.Code() {
		e.leaveRoom(cs)
	}

	id, userId := cs.client.Id(), cs.client.UserId()
	p := room.AddParticipant(id, userId, name, e.now())
	if !room.Has(room.HostId()) {
		room.SetHost(id)
		p.IsHost = true
	}
	cs.roomCode = room.Code()

	log.Info().Str("room", room.Code()).Str("conn", id).Msg("participant joined room")

	if durable := room.Durable(); userId != "" && durable != nil && e.rooms != nil {
		e.trackDurableJoin(durable.Id, userId)
	}

	participants := room.Participants()
	e.broadcastRoom(room, id, evUserJoined, gin.H{
		"user":         gin.H{"id": id, "userId": userId, "name": p.Name},
		"participants": participants,
	})
	e.reply(req, gin.H{
		"roomCode":     room.Code(),
		"participants": participants,
		"drawHistory":  room.DrawHistory(),
		"hostId":       room.HostId(),
	})
}

func (e *Engine) trackDurableJoin(roomId, userId string) {
	rooms, users := e.rooms, e.users
	e.async(func(ctx context.Context) func() {
		if err := rooms.AddRoomParticipant(ctx, roomId, userId); err != nil {
			log.Warn().Err(err).Str("user", userId).Msg("failed to record durable participant")
		}
		if users != nil {
			if err := users.IncrementUserStat(ctx, userId, domain.StatRoomsJoined); err != nil {
				log.Warn().Err(err).Str("user", userId).Msg("failed to update user stats")
			}
		}
		return nil
	})
}

func (e *Engine) handleLeaveRoom(req request) {
	if _, ok := e.currentRoom(req.cs); !ok {
		e.fail(req, ErrNotInRoom)
		return
	}
	e.leaveRoom(req.cs)
	e.reply(req, nil)
}

// leaveRoom is the single departure path for explicit leaves, room switches and
// disconnects.
func (e *Engine) leaveRoom(cs *clientState) {
	room, ok := e.currentRoom(cs)
	cs.roomCode = ""
	if !ok {
		return
	}
	id := cs.client.Id()
	p, _ := room.RemoveParticipant(id)

	if durable := room.Durable(); p.UserId != "" && durable != nil && e.rooms != nil {
		rooms, roomId := e.rooms, durable.Id
		e.async(func(ctx context.Context) func() {
			if err := rooms.RemoveRoomParticipant(ctx, roomId, p.UserId); err != nil {
				log.Warn().Err(err).Str("user", p.UserId).Msg("failed to remove durable participant")
			}
			return nil
		})
	}

	log.Info().Str("room", room.Code()).Str("conn", id).Msg("participant left room")

	if room.Len() == 0 {
		e.registry.DeleteRoom(room.Code())
		log.Info().Str("room", room.Code()).Msg("room deleted")
		e.notify(SubjectSessionDeleted, SessionEvent{Kind: "room", Code: room.Code(), At: e.now().UnixMilli()})
		return
	}

	e.broadcastRoom(room, id, evUserLeft, gin.H{
		"emitterId":    id,
		"userName":     p.Name,
		"participants": room.Participants(),
	})

	if id == room.HostId() {
		next := room.Participants()[0]
		room.SetHost(next.Id)
		e.broadcastRoom(room, "", evHostChanged, gin.H{"newHostId": next.Id, "newHostName": next.Name})
	}
}

func (e *Engine) handleDraw(req request) {
	room, ok := e.currentRoom(req.cs)
	if !ok {
		return
	}
	var body drawRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	ev := DrawEvent{
		FromX:     body.FromX,
		FromY:     body.FromY,
		ToX:       body.ToX,
		ToY:       body.ToY,
		Color:     body.Color,
		Size:      body.Size,
		Tool:      body.Tool,
		EmitterId: req.cs.client.Id(),
		Timestamp: e.now().UnixMilli(),
	}
	room.AddDrawEvent(ev)
	e.broadcastRoom(room, ev.EmitterId, evDraw, ev)
}

func (e *Engine) handleStrokeEnd(req request) {
	room, ok := e.currentRoom(req.cs)
	if !ok {
		return
	}
	id := req.cs.client.Id()
	e.broadcastRoom(room, id, evStrokeEnd, gin.H{"emitterId": id, "timestamp": e.now().UnixMilli()})
}

func (e *Engine) handleClearCanvas(req request) {
	room, ok := e.currentRoom(req.cs)
	if !ok {
		return
	}
	id := req.cs.client.Id()
	room.ClearHistory()
	log.Debug().Str("room", room.Code()).Msg("canvas cleared")
	e.broadcastRoom(room, id, evClearCanvas, gin.H{"emitterId": id})
}

// handleCursorMove relays without touching history.
func (e *Engine) handleCursorMove(req request) {
	room, ok := e.currentRoom(req.cs)
	if !ok {
		return
	}
	var body cursorRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	id := req.cs.client.Id()
	e.broadcastRoom(room, id, evCursorMove, gin.H{"emitterId": id, "x": body.X, "y": body.Y})
}

func (e *Engine) handleSaveSnapshot(req request) {
	room, ok := e.currentRoom(req.cs)
	if !ok {
		e.fail(req, ErrNotInRoom)
		return
	}
	var body snapshotRequest
	if err := decodeData(req.data, &body); err != nil {
		e.fail(req, err)
		return
	}
	durable := room.Durable()
	if e.rooms == nil {
		e.failSnapshot(req, ErrPersistenceUnavailable)
		return
	}
	if durable == nil {
		e.failSnapshot(req, ErrRoomNotPersistent)
		return
	}

	rooms, roomId, snapshot := e.rooms, durable.Id, []byte(body.Snapshot)
	e.async(func(ctx context.Context) func() {
		err := rooms.SaveRoomSnapshot(ctx, roomId, snapshot)
		return func() {
			if !e.live(req.cs) {
				return
			}
			if err != nil {
				log.Error().Err(err).Str("room", room.Code()).Msg("failed to save snapshot")
				e.failSnapshot(req, fmt.Errorf("%w: %w", ErrPersistenceFailed, err))
				return
			}
			req.cs.client.Send(encodeFrame(evSnapshotSaved, nil, gin.H{"success": true}))
			e.reply(req, nil)
		}
	})
}

func (e *Engine) failSnapshot(req request, err error) {
	req.cs.client.Send(encodeFrame(evSnapshotSaved, nil, gin.H{"success": false, "error": err.Error()}))
	e.fail(req, err)
}
