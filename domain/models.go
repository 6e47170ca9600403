package domain

import "time"

type UserStats struct {
	RoomsCreated int `json:"roomsCreated"`
	RoomsJoined  int `json:"roomsJoined"`
}

type User struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarColor  string    `json:"avatarColor"`
	Stats        UserStats `json:"stats"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserStat names a counter column of the users table.
type UserStat string

const (
	StatRoomsCreated UserStat = "rooms_created"
	StatRoomsJoined  UserStat = "rooms_joined"
)

// DurableRoom is the persisted side of a whiteboard room owned by a registered user.
type DurableRoom struct {
	Id               string    `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	HostId           string    `json:"hostId"`
	ParticipantCount int       `json:"participantCount"`
	Snapshot         []byte    `json:"-"`
	IsActive         bool      `json:"isActive"`
	ExpiresAt        time.Time `json:"expiresAt"`
	CreatedAt        time.Time `json:"createdAt"`
}
