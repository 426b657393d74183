package models

import (
	"time"
)

// User is the per-(user, guild) progression record. Level is always a
// pure function of XP; it is persisted as a denormalized column so the
// leaderboard can sort without recomputing the curve, and is rewritten on
// every XP change.
type User struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	GuildID        string    `gorm:"primaryKey;index:idx_users_guild_level,priority:1" json:"guild_id"`
	XP             int64     `json:"xp"`
	Level          int       `gorm:"default:1;index:idx_users_guild_level,priority:2,sort:desc" json:"level"`
	LastAttendance *string   `json:"last_attendance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
