package progression

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hearth-club/levelbot/internal/curve"
	"github.com/hearth-club/levelbot/internal/models"
	"github.com/hearth-club/levelbot/internal/notifier"
	"github.com/hearth-club/levelbot/internal/store"
	"github.com/hearth-club/levelbot/internal/tier"
)

// ErrInvalidLevel reports a target level outside [1, MaxLevel]. It is a
// validation failure surfaced before the store is touched.
var ErrInvalidLevel = errors.New("level out of range")

// Service orchestrates the store, the curve and the tier resolver for
// the check-in and admin entry points. Role changes are applied through
// the RoleManager on a best-effort basis: a permission error is logged
// and never rolls back a committed XP change.
type Service struct {
	store           *store.Store
	curve           curve.Curve
	tiers           *tier.Resolver
	roles           notifier.RoleManager
	xpPerAttendance int64
}

func NewService(s *store.Store, c curve.Curve, tiers *tier.Resolver, roles notifier.RoleManager, xpPerAttendance int64) *Service {
	return &Service{
		store:           s,
		curve:           c,
		tiers:           tiers,
		roles:           roles,
		xpPerAttendance: xpPerAttendance,
	}
}

type CheckInResult struct {
	Accepted      bool
	OldLevel      int
	NewLevel      int
	XP            int64
	ProgressXP    int64
	NeededXP      int64
	GrantedRoleID string
}

func (r *CheckInResult) LeveledUp() bool {
	return r.Accepted && r.NewLevel > r.OldLevel
}

// CheckIn records today's attendance for the member, creating the record
// on first contact. A rejection (already attended today) comes back as
// Accepted=false, not as an error.
func (s *Service) CheckIn(userID, guildID string, now time.Time) (*CheckInResult, error) {
	if err := s.store.CreateIfAbsent(userID, guildID); err != nil {
		return nil, fmt.Errorf("failed to ensure record: %w", err)
	}

	accepted, oldLevel, newLevel, err := s.store.RecordAttendance(userID, guildID, s.xpPerAttendance, now)
	if err != nil {
		return nil, err
	}

	result := &CheckInResult{
		Accepted: accepted,
		OldLevel: oldLevel,
		NewLevel: newLevel,
	}
	if !accepted {
		return result, nil
	}

	user, err := s.store.Get(userID, guildID)
	if err != nil {
		return nil, err
	}
	result.XP = user.XP
	_, result.ProgressXP, result.NeededXP = s.curve.Progress(user.XP)

	if result.LeveledUp() {
		result.GrantedRoleID = s.reconcileRoles(userID, guildID, newLevel)
	}

	return result, nil
}

type SetLevelResult struct {
	Level         int
	XP            int64
	Capped        bool
	GrantedRoleID string
}

// SetLevel is the admin override: it moves the member to the cumulative
// XP of the target level. The result reports the level actually stored,
// which exceeds the target when its XP requirement saturates at MaxXP.
// Roles are reconciled unconditionally since the level can move in
// either direction.
func (s *Service) SetLevel(userID, guildID string, targetLevel int) (*SetLevelResult, error) {
	if targetLevel < 1 || targetLevel > s.curve.MaxLevel {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLevel, targetLevel, s.curve.MaxLevel)
	}

	if err := s.store.CreateIfAbsent(userID, guildID); err != nil {
		return nil, fmt.Errorf("failed to ensure record: %w", err)
	}

	targetXP := s.curve.XPForLevel(targetLevel)
	capped := targetXP >= s.curve.MaxXP
	storedLevel := s.curve.LevelFromXP(targetXP)

	if err := s.store.SetXP(userID, guildID, targetXP); err != nil {
		return nil, err
	}

	return &SetLevelResult{
		Level:         storedLevel,
		XP:            targetXP,
		Capped:        capped,
		GrantedRoleID: s.reconcileRoles(userID, guildID, storedLevel),
	}, nil
}

// AdjustXP applies a relative XP delta to the member, clamped to
// [0, MaxXP]. Roles are reconciled unconditionally since the delta can
// move the level in either direction.
func (s *Service) AdjustXP(userID, guildID string, delta int64) (*Profile, error) {
	if err := s.store.CreateIfAbsent(userID, guildID); err != nil {
		return nil, fmt.Errorf("failed to ensure record: %w", err)
	}
	if err := s.store.AdjustXP(userID, guildID, delta); err != nil {
		return nil, err
	}
	profile, err := s.GetProfile(userID, guildID)
	if err != nil {
		return nil, err
	}
	s.reconcileRoles(userID, guildID, profile.User.Level)
	return profile, nil
}

// Reset zeroes the member's record and strips higher-tier roles by
// reconciling against level 1.
func (s *Service) Reset(userID, guildID string) error {
	if err := s.store.CreateIfAbsent(userID, guildID); err != nil {
		return fmt.Errorf("failed to ensure record: %w", err)
	}
	if err := s.store.Reset(userID, guildID); err != nil {
		return err
	}
	s.reconcileRoles(userID, guildID, 1)
	return nil
}

type Profile struct {
	User       *models.User
	ProgressXP int64
	NeededXP   int64
	RoleID     string
}

// GetProfile returns the member's record with progress toward the next
// level, for rank display. Missing records are created with defaults so
// a first lookup never errors.
func (s *Service) GetProfile(userID, guildID string) (*Profile, error) {
	if err := s.store.CreateIfAbsent(userID, guildID); err != nil {
		return nil, fmt.Errorf("failed to ensure record: %w", err)
	}
	user, err := s.store.Get(userID, guildID)
	if err != nil {
		return nil, err
	}
	_, progressXP, neededXP := s.curve.Progress(user.XP)
	return &Profile{
		User:       user,
		ProgressXP: progressXP,
		NeededXP:   neededXP,
		RoleID:     s.tiers.RoleForLevel(user.Level),
	}, nil
}

// Leaderboard returns the guild's top records ordered by level then XP.
func (s *Service) Leaderboard(guildID string, limit int) ([]models.User, error) {
	return s.store.Leaderboard(guildID, limit)
}

// reconcileRoles applies the tier role changes the level implies and
// returns the role id that was granted, if any. All failures are logged
// and swallowed: the XP mutation has already committed and attendance
// credit is authoritative regardless of role outcome.
func (s *Service) reconcileRoles(userID, guildID string, level int) string {
	if s.roles == nil {
		return ""
	}

	held, err := s.roles.MemberRoles(guildID, userID)
	if err != nil {
		log.Printf("Role reconciliation skipped for %s in %s: %v", userID, guildID, err)
		return ""
	}

	toAdd, toRemove := s.tiers.Reconcile(held, level)

	if len(toRemove) > 0 {
		if err := s.roles.RevokeRoles(guildID, userID, toRemove); err != nil {
			log.Printf("Failed to remove stale tier roles from %s: %v", userID, err)
		}
	}

	granted := ""
	for _, roleID := range toAdd {
		if err := s.roles.GrantRole(guildID, userID, roleID); err != nil {
			log.Printf("Failed to grant tier role %s to %s: %v", roleID, userID, err)
			continue
		}
		granted = roleID
	}
	return granted
}
