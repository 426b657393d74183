package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hearth-club/levelbot/internal/auth"
	"github.com/hearth-club/levelbot/internal/progression"
	"github.com/hearth-club/levelbot/internal/store"
)

type ProgressionHandler struct {
	service     *progression.Service
	authHandler *auth.AuthHandler
}

func NewProgressionHandler(service *progression.Service, authHandler *auth.AuthHandler) *ProgressionHandler {
	return &ProgressionHandler{service: service, authHandler: authHandler}
}

// requireAdmin gates the admin operations on the configured admin role.
func (h *ProgressionHandler) requireAdmin(ctx context.Context) (string, error) {
	discordID := auth.DiscordID(ctx)
	if discordID == "" {
		return "", huma.Error401Unauthorized("Unauthorized")
	}
	isAdmin, err := h.authHandler.IsAdmin(discordID)
	if err != nil {
		return "", huma.Error500InternalServerError("Failed to check admin role: " + err.Error())
	}
	if !isAdmin {
		return "", huma.Error403Forbidden("Access denied: admin role required")
	}
	return discordID, nil
}

type CheckInRequest struct {
	GuildID string `path:"guild_id" doc:"Guild to check in to"`
}

type CheckInResponse struct {
	Body struct {
		Accepted   bool   `json:"accepted" doc:"False when attendance was already recorded today"`
		OldLevel   int    `json:"old_level"`
		NewLevel   int    `json:"new_level"`
		XP         int64  `json:"xp"`
		ProgressXP int64  `json:"progress_xp"`
		NeededXP   int64  `json:"needed_xp"`
		RoleID     string `json:"granted_role_id,omitempty"`
	}
}

func (h *ProgressionHandler) HandleCheckIn(ctx context.Context, input *CheckInRequest) (*CheckInResponse, error) {
	discordID := auth.DiscordID(ctx)
	if discordID == "" {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.CheckIn(discordID, input.GuildID, time.Now())
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to process check-in: " + err.Error())
	}

	res := &CheckInResponse{}
	res.Body.Accepted = result.Accepted
	res.Body.OldLevel = result.OldLevel
	res.Body.NewLevel = result.NewLevel
	res.Body.XP = result.XP
	res.Body.ProgressXP = result.ProgressXP
	res.Body.NeededXP = result.NeededXP
	res.Body.RoleID = result.GrantedRoleID
	return res, nil
}

type ProfileRequest struct {
	GuildID string `path:"guild_id"`
	UserID  string `path:"user_id"`
}

type ProfileResponse struct {
	Body struct {
		UserID     string `json:"user_id"`
		GuildID    string `json:"guild_id"`
		XP         int64  `json:"xp"`
		Level      int    `json:"level"`
		ProgressXP int64  `json:"progress_xp"`
		NeededXP   int64  `json:"needed_xp"`
		RoleID     string `json:"role_id,omitempty"`
	}
}

func (h *ProgressionHandler) HandleProfile(ctx context.Context, input *ProfileRequest) (*ProfileResponse, error) {
	if auth.DiscordID(ctx) == "" {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	profile, err := h.service.GetProfile(input.UserID, input.GuildID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load profile: " + err.Error())
	}

	res := &ProfileResponse{}
	res.Body.UserID = profile.User.UserID
	res.Body.GuildID = profile.User.GuildID
	res.Body.XP = profile.User.XP
	res.Body.Level = profile.User.Level
	res.Body.ProgressXP = profile.ProgressXP
	res.Body.NeededXP = profile.NeededXP
	res.Body.RoleID = profile.RoleID
	return res, nil
}

type LeaderboardRequest struct {
	GuildID string `path:"guild_id"`
	Limit   int    `query:"limit" default:"10" minimum:"1" maximum:"100" doc:"Number of rows to return"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
	XP     int64  `json:"xp"`
}

type LeaderboardResponse struct {
	Body struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
}

func (h *ProgressionHandler) HandleLeaderboard(ctx context.Context, input *LeaderboardRequest) (*LeaderboardResponse, error) {
	if auth.DiscordID(ctx) == "" {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	users, err := h.service.Leaderboard(input.GuildID, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load leaderboard: " + err.Error())
	}

	res := &LeaderboardResponse{}
	res.Body.Entries = make([]LeaderboardEntry, 0, len(users))
	for i, user := range users {
		res.Body.Entries = append(res.Body.Entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: user.UserID,
			Level:  user.Level,
			XP:     user.XP,
		})
	}
	return res, nil
}

type SetLevelRequest struct {
	GuildID string `path:"guild_id"`
	UserID  string `path:"user_id"`
	Body    struct {
		Level int `json:"level" doc:"Target level" required:"true"`
	}
}

type SetLevelResponse struct {
	Body struct {
		Level  int    `json:"level"`
		XP     int64  `json:"xp"`
		Capped bool   `json:"capped" doc:"True when the level's XP requirement hit the storage cap"`
		RoleID string `json:"granted_role_id,omitempty"`
	}
}

func (h *ProgressionHandler) HandleSetLevel(ctx context.Context, input *SetLevelRequest) (*SetLevelResponse, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := h.service.SetLevel(input.UserID, input.GuildID, input.Body.Level)
	if err != nil {
		if errors.Is(err, progression.ErrInvalidLevel) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("Record not found")
		}
		return nil, huma.Error500InternalServerError("Failed to set level: " + err.Error())
	}

	res := &SetLevelResponse{}
	res.Body.Level = result.Level
	res.Body.XP = result.XP
	res.Body.Capped = result.Capped
	res.Body.RoleID = result.GrantedRoleID
	return res, nil
}

type AdjustXPRequest struct {
	GuildID string `path:"guild_id"`
	UserID  string `path:"user_id"`
	Body    struct {
		Delta int64 `json:"delta" doc:"Signed XP change; the result is clamped to [0, MAX_XP]" required:"true"`
	}
}

func (h *ProgressionHandler) HandleAdjustXP(ctx context.Context, input *AdjustXPRequest) (*ProfileResponse, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	profile, err := h.service.AdjustXP(input.UserID, input.GuildID, input.Body.Delta)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to adjust XP: " + err.Error())
	}

	res := &ProfileResponse{}
	res.Body.UserID = profile.User.UserID
	res.Body.GuildID = profile.User.GuildID
	res.Body.XP = profile.User.XP
	res.Body.Level = profile.User.Level
	res.Body.ProgressXP = profile.ProgressXP
	res.Body.NeededXP = profile.NeededXP
	res.Body.RoleID = profile.RoleID
	return res, nil
}

type ResetRequest struct {
	GuildID string `path:"guild_id"`
	UserID  string `path:"user_id"`
}

type ResetResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *ProgressionHandler) HandleReset(ctx context.Context, input *ResetRequest) (*ResetResponse, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := h.service.Reset(input.UserID, input.GuildID); err != nil {
		return nil, huma.Error500InternalServerError("Failed to reset record: " + err.Error())
	}

	res := &ResetResponse{}
	res.Body.Message = "Record reset"
	return res, nil
}

type MeResponse struct {
	Body struct {
		DiscordID string `json:"discord_id"`
	}
}

func (h *ProgressionHandler) HandleMe(ctx context.Context, input *struct{}) (*MeResponse, error) {
	discordID := auth.DiscordID(ctx)
	if discordID == "" {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	res := &MeResponse{}
	res.Body.DiscordID = discordID
	return res, nil
}
