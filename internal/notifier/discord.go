package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// RoleManager is the platform collaborator the progression service uses
// to apply tier role changes. Implementations must treat permission
// failures as ordinary errors; the caller decides they are non-fatal.
type RoleManager interface {
	MemberRoles(guildID, userID string) ([]string, error)
	GrantRole(guildID, userID, roleID string) error
	RevokeRoles(guildID, userID string, roleIDs []string) error
	HasRole(guildID, userID, roleID string) (bool, error)
}

type DiscordNotifier struct {
	session *discordgo.Session
}

func NewDiscordNotifier(session *discordgo.Session) *DiscordNotifier {
	return &DiscordNotifier{session: session}
}

func (n *DiscordNotifier) MemberRoles(guildID, userID string) ([]string, error) {
	if n.session == nil {
		return nil, fmt.Errorf("discord session is nil")
	}
	member, err := n.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild member: %w", err)
	}
	return member.Roles, nil
}

func (n *DiscordNotifier) GrantRole(guildID, userID, roleID string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if err := n.session.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		return fmt.Errorf("failed to grant role %s: %w", roleID, err)
	}
	return nil
}

func (n *DiscordNotifier) RevokeRoles(guildID, userID string, roleIDs []string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	for _, roleID := range roleIDs {
		if err := n.session.GuildMemberRoleRemove(guildID, userID, roleID); err != nil {
			// Keep going; a stale role we cannot touch should not block
			// removing the others.
			log.Printf("Failed to remove role %s from %s: %v", roleID, userID, err)
		}
	}
	return nil
}

func (n *DiscordNotifier) HasRole(guildID, userID, roleID string) (bool, error) {
	roles, err := n.MemberRoles(guildID, userID)
	if err != nil {
		return false, err
	}
	for _, id := range roles {
		if id == roleID {
			return true, nil
		}
	}
	return false, nil
}

// RoleName resolves a role id to its display name, for embeds. Falls
// back to the id when the lookup fails.
func (n *DiscordNotifier) RoleName(guildID, roleID string) string {
	if n.session == nil || roleID == "" {
		return roleID
	}
	roles, err := n.session.GuildRoles(guildID)
	if err != nil {
		return roleID
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role.Name
		}
	}
	return roleID
}
