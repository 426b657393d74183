package store

import (
	"errors"
	"time"

	"github.com/hearth-club/levelbot/internal/clock"
	"github.com/hearth-club/levelbot/internal/curve"
	"github.com/hearth-club/levelbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound reports that no progression record exists for the key.
// Expected outcomes (already attended today) are returned as values, not
// errors; anything else coming out of the store is an I/O failure.
var ErrNotFound = errors.New("progression record not found")

// Store owns all durable per-(user, guild) progression state. Every
// mutation is a compare-and-set: the UPDATE carries the previously read
// state in its WHERE clause, and a zero RowsAffected means the row moved
// under us, in which case the operation re-reads and retries. A failed
// CAS implies some other writer on the same key succeeded, so the loop
// always makes system-wide progress.
type Store struct {
	db     *gorm.DB
	curve  curve.Curve
	dayKey clock.DayKeyFunc
}

func New(db *gorm.DB, c curve.Curve, dayKey clock.DayKeyFunc) *Store {
	return &Store{db: db, curve: c, dayKey: dayKey}
}

// Get returns the record for the key, or ErrNotFound.
func (s *Store) Get(userID, guildID string) (*models.User, error) {
	var user models.User
	err := s.db.Where("user_id = ? AND guild_id = ?", userID, guildID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateIfAbsent inserts a default record (xp=0, level=1) for the key.
// An existing row is left untouched; concurrent creators all succeed.
func (s *Store) CreateIfAbsent(userID, guildID string) error {
	user := models.User{UserID: userID, GuildID: guildID, XP: 0, Level: 1}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
		DoNothing: true,
	}).Create(&user).Error
}

// AdjustXP applies a signed delta to the record's XP, clamped to
// [0, MaxXP], and rewrites the cached level. Returns ErrNotFound if the
// record does not exist.
func (s *Store) AdjustXP(userID, guildID string, delta int64) error {
	for {
		user, err := s.Get(userID, guildID)
		if err != nil {
			return err
		}

		newXP := s.clampXP(user.XP, delta)
		newLevel := s.curve.LevelFromXP(newXP)

		res := s.db.Model(&models.User{}).
			Where("user_id = ? AND guild_id = ? AND xp = ?", userID, guildID, user.XP).
			Updates(map[string]interface{}{"xp": newXP, "level": newLevel})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
}

// RecordAttendance performs the once-per-reference-day check-in. When the
// record has already attended on the day now falls in, it returns
// accepted=false with both levels equal and mutates nothing. Otherwise it
// atomically adds xpGain (capped at MaxXP), stamps the day key, and
// rewrites the level. Two concurrent calls on the same day produce
// exactly one acceptance.
func (s *Store) RecordAttendance(userID, guildID string, xpGain int64, now time.Time) (accepted bool, oldLevel, newLevel int, err error) {
	today := s.dayKey(now)

	for {
		user, err := s.Get(userID, guildID)
		if err != nil {
			return false, 0, 0, err
		}

		if user.LastAttendance != nil && *user.LastAttendance == today {
			return false, user.Level, user.Level, nil
		}

		newXP := s.clampXP(user.XP, xpGain)
		newLevel := s.curve.LevelFromXP(newXP)

		// The guard repeats both halves of the read state: the day gate and
		// the XP value. Losing either race re-reads; a racer that already
		// stamped today turns the retry into a rejection.
		res := s.db.Model(&models.User{}).
			Where("user_id = ? AND guild_id = ? AND xp = ? AND (last_attendance IS NULL OR last_attendance <> ?)",
				userID, guildID, user.XP, today).
			Updates(map[string]interface{}{"xp": newXP, "level": newLevel, "last_attendance": today})
		if res.Error != nil {
			return false, 0, 0, res.Error
		}
		if res.RowsAffected == 1 {
			return true, user.Level, newLevel, nil
		}
	}
}

// SetXP overwrites the record's XP (clamped to [0, MaxXP]) and level in
// one write. Admin path; returns ErrNotFound if the record is missing.
func (s *Store) SetXP(userID, guildID string, newXP int64) error {
	if newXP < 0 {
		newXP = 0
	}
	if newXP > s.curve.MaxXP {
		newXP = s.curve.MaxXP
	}
	newLevel := s.curve.LevelFromXP(newXP)

	res := s.db.Model(&models.User{}).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Updates(map[string]interface{}{"xp": newXP, "level": newLevel})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset zeroes the record: xp=0, level=1, attendance cleared. The row is
// kept, not deleted.
func (s *Store) Reset(userID, guildID string) error {
	res := s.db.Model(&models.User{}).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Updates(map[string]interface{}{"xp": 0, "level": 1, "last_attendance": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Leaderboard returns up to limit records for the guild ordered by
// (level DESC, xp DESC), served by the (guild_id, level DESC) index.
func (s *Store) Leaderboard(guildID string, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.Where("guild_id = ?", guildID).
		Order("level DESC, xp DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) clampXP(current, delta int64) int64 {
	maxXP := s.curve.MaxXP
	if delta > 0 && current > maxXP-delta {
		return maxXP
	}
	next := current + delta
	if next < 0 {
		return 0
	}
	if next > maxXP {
		return maxXP
	}
	return next
}
