package session

import (
	"context"
	"drawit/domain"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	ErrUnknownStr      = "unknown-error"
	ErrRoomNotFoundStr = "room-not-found"
	ErrGameNotFoundStr = "game-not-found"
	ErrEngineBusyStr   = "engine-unavailable"

	lookupTimeout = 2 * time.Second
	qrSize        = 256
)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type sessionHandler struct {
	engine    *Engine
	tickers   TickerFactory
	tokens    TokenVerifier
	users     UserStore
	rooms     RoomStore
	upgrader  websocket.Upgrader
	publicURL string
	now       func() time.Time
}

// NewSessionHandler builds the HTTP surface of the engine. tokens, users and rooms may be
// nil when persistence is disabled.
func NewSessionHandler(engine *Engine, tickers TickerFactory, tokens TokenVerifier, users UserStore, rooms RoomStore, allowedOrigins []string, publicURL string) *sessionHandler {
	return &sessionHandler{
		engine:  engine,
		tickers: tickers,
		tokens:  tokens,
		users:   users,
		rooms:   rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		publicURL: publicURL,
		now:       time.Now,
	}
}

// identify resolves the optional token cookie to a user id and display name. Any failure
// degrades to an anonymous connection.
func (h *sessionHandler) identify(ctx *gin.Context) (string, string) {
	if h.tokens == nil {
		return "", ""
	}
	token := bearerToken(ctx)
	if token == "" {
		return "", ""
	}
	userId, err := h.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Str("ip", ctx.ClientIP()).Msg("ignoring invalid token on websocket upgrade")
		return "", ""
	}
	if h.users == nil {
		return userId, ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx.Request.Context(), lookupTimeout)
	defer cancel()
	user, err := h.users.GetUserById(lookupCtx, userId)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			log.Error().Err(err).Str("user", userId).Msg("user lookup failed")
		}
		return "", ""
	}
	return user.Id, user.Name
}

// bearerToken reads the Authorization header first, then the token cookie.
func bearerToken(ctx *gin.Context) string {
	if token, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer "); ok {
		return token
	}
	token, _ := ctx.Cookie("token")
	return token
}

func (h *sessionHandler) WebsocketHandler(ctx *gin.Context) {
	userId, name := h.identify(ctx)

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	socket := NewWebsocketConnection(conn)
	c := NewConnection(uuid.NewString(), userId, name, socket)

	if !h.engine.Connect(ctx.Request.Context(), c) {
		socket.Close(ErrEngineBusyStr)
		return
	}

	log.Debug().Str("conn", c.Id()).Str("user", userId).Msg("websocket connected")

	go c.WritePump(h.tickers)
	c.ReadPump(context.Background(), h.engine)
}

func (h *sessionHandler) HealthHandler(ctx *gin.Context) {
	stats, ok := h.engine.Stats(ctx.Request.Context())
	if !ok {
		ctx.String(http.StatusServiceUnavailable, ErrEngineBusyStr)
		return
	}
	database := "disconnected"
	if h.rooms != nil {
		database = "connected"
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   h.now().UTC().Format(time.RFC3339),
		"database":    database,
		"activeRooms": stats.ActiveRooms,
		"activeGames": stats.ActiveGames,
	})
}

func (h *sessionHandler) RoomHandler(ctx *gin.Context) {
	code := NormalizeCode(ctx.Param("code"))

	if summary, ok := h.engine.RoomSummary(ctx.Request.Context(), code); ok {
		ctx.JSON(http.StatusOK, summary)
		return
	}
	if h.rooms == nil {
		ctx.String(http.StatusNotFound, ErrRoomNotFoundStr)
		return
	}

	durable, err := h.rooms.FindActiveRoom(ctx.Request.Context(), code)
	switch {
	case errors.Is(err, domain.ErrDurableRoomNotFound):
		ctx.String(http.StatusNotFound, ErrRoomNotFoundStr)
	case err != nil:
		log.Error().Err(err).Str("room", code).Msg("durable room lookup failed")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
	default:
		ctx.JSON(http.StatusOK, durable)
	}
}

// RoomQRHandler renders the join link of a live room as a PNG.
func (h *sessionHandler) RoomQRHandler(ctx *gin.Context) {
	code := NormalizeCode(ctx.Param("code"))
	if _, ok := h.engine.RoomSummary(ctx.Request.Context(), code); !ok {
		ctx.String(http.StatusNotFound, ErrRoomNotFoundStr)
		return
	}

	png, err := qrcode.Encode(h.publicURL+"/room/"+code, qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("qr encoding failed")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

func (h *sessionHandler) GameHandler(ctx *gin.Context) {
	code := NormalizeCode(ctx.Param("code"))
	summary, ok := h.engine.GameSummary(ctx.Request.Context(), code)
	if !ok {
		ctx.String(http.StatusNotFound, ErrGameNotFoundStr)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}
