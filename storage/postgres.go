package storage

import (
	"context"
	"drawit/domain"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres unique_violation
const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Ping(ctx context.Context) error {
	return pgr.pool.Ping(ctx)
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

// wrapErr keeps context errors intact so callers can tell timeouts apart.
func wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = "id, name, email, password_hash, avatar_color, rooms_created, rooms_joined, created_at"

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.Id, &u.Name, &u.Email, &u.PasswordHash, &u.AvatarColor, &u.Stats.RoomsCreated, &u.Stats.RoomsJoined, &u.CreatedAt)
	return u, err
}

func (pgr *PostgresRepo) CreateUser(ctx context.Context, name, email, passwordHash, avatarColor string) (domain.User, error) {
	row := pgr.pool.QueryRow(ctx,
		"INSERT INTO users(name, email, password_hash, avatar_color) VALUES($1, $2, $3, $4) RETURNING "+userColumns,
		name, email, passwordHash, avatarColor)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		return domain.User{}, wrapErr(err)
	}
	return user, nil
}

func (pgr *PostgresRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := scanUser(pgr.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, wrapErr(err)
	}
	return user, nil
}

func (pgr *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user, err := scanUser(pgr.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id::text = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, wrapErr(err)
	}
	return user, nil
}

func (pgr *PostgresRepo) TouchUser(ctx context.Context, id string) error {
	_, err := pgr.pool.Exec(ctx, "UPDATE users SET last_active = now() WHERE id::text = $1", id)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (pgr *PostgresRepo) IncrementUserStat(ctx context.Context, id string, stat domain.UserStat) error {
	var column string
	switch stat {
	case domain.StatRoomsCreated:
		column = "rooms_created"
	case domain.StatRoomsJoined:
		column = "rooms_joined"
	default:
		return fmt.Errorf("%w: unknown stat %q", domain.UnexpectedDatabaseError, stat)
	}

	tag, err := pgr.pool.Exec(ctx, "UPDATE users SET "+column+" = "+column+" + 1 WHERE id::text = $1", id)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

const roomColumns = `r.id, r.code, r.name, r.host_id, r.is_active, r.expires_at, r.created_at,
	(SELECT count(*) FROM room_participants p WHERE p.room_id = r.id)`

func scanRoom(row pgx.Row) (domain.DurableRoom, error) {
	var r domain.DurableRoom
	err := row.Scan(&r.Id, &r.Code, &r.Name, &r.HostId, &r.IsActive, &r.ExpiresAt, &r.CreatedAt, &r.ParticipantCount)
	return r, err
}

// CreateDurableRoom stores a room owned by hostUserId and records the host as its first
// participant.
func (pgr *PostgresRepo) CreateDurableRoom(ctx context.Context, code, hostUserId string) (domain.DurableRoom, error) {
	tx, err := pgr.pool.Begin(ctx)
	if err != nil {
		return domain.DurableRoom{}, wrapErr(err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, "INSERT INTO rooms(code, host_id) VALUES($1, $2::uuid) RETURNING id", code, hostUserId).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.DurableRoom{}, domain.ErrDuplicateRoomCode
		}
		return domain.DurableRoom{}, wrapErr(err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO room_participants(room_id, user_id) VALUES($1, $2::uuid)", id, hostUserId); err != nil {
		return domain.DurableRoom{}, wrapErr(err)
	}

	room, err := scanRoom(tx.QueryRow(ctx, "SELECT "+roomColumns+" FROM rooms r WHERE r.id = $1", id))
	if err != nil {
		return domain.DurableRoom{}, wrapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.DurableRoom{}, wrapErr(err)
	}
	return room, nil
}

// FindActiveRoom ignores inactive and expired rooms.
func (pgr *PostgresRepo) FindActiveRoom(ctx context.Context, code string) (domain.DurableRoom, error) {
	room, err := scanRoom(pgr.pool.QueryRow(ctx,
		"SELECT "+roomColumns+" FROM rooms r WHERE r.code = $1 AND r.is_active AND r.expires_at > now()", code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DurableRoom{}, domain.ErrDurableRoomNotFound
		}
		return domain.DurableRoom{}, wrapErr(err)
	}
	return room, nil
}

// AddRoomParticipant is idempotent.
func (pgr *PostgresRepo) AddRoomParticipant(ctx context.Context, roomId, userId string) error {
	_, err := pgr.pool.Exec(ctx,
		"INSERT INTO room_participants(room_id, user_id) VALUES($1::uuid, $2::uuid) ON CONFLICT DO NOTHING", roomId, userId)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (pgr *PostgresRepo) RemoveRoomParticipant(ctx context.Context, roomId, userId string) error {
	_, err := pgr.pool.Exec(ctx,
		"DELETE FROM room_participants WHERE room_id = $1::uuid AND user_id = $2::uuid", roomId, userId)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (pgr *PostgresRepo) SaveRoomSnapshot(ctx context.Context, roomId string, snapshot []byte) error {
	tag, err := pgr.pool.Exec(ctx, "UPDATE rooms SET snapshot = $2 WHERE id = $1::uuid", roomId, snapshot)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDurableRoomNotFound
	}
	return nil
}
