package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hearth-club/levelbot/internal/config"
	"github.com/hearth-club/levelbot/internal/notifier"
	"github.com/hearth-club/levelbot/internal/progression"
)

// Bot is the Discord gateway shell around the progression service. It
// owns no progression state: every handler reads and writes through the
// service so concurrent events stay consistent.
type Bot struct {
	session  *discordgo.Session
	service  *progression.Service
	notifier *notifier.DiscordNotifier
	cfg      *config.Config
}

func New(session *discordgo.Session, service *progression.Service, n *notifier.DiscordNotifier, cfg *config.Config) *Bot {
	return &Bot{session: session, service: service, notifier: n, cfg: cfg}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "checkin",
		Description: "Record today's attendance and earn XP",
	},
	{
		Name:        "rank",
		Description: "Show your level and progress",
	},
	{
		Name:        "leaderboard",
		Description: "Show the server level ranking",
	},
	{
		Name:        "setlevel",
		Description: "Set a member's level (admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "member",
				Description: "Member to update",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "level",
				Description: "Target level",
				Required:    true,
			},
		},
	},
	{
		Name:        "reset",
		Description: "Reset a member's progression (admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "member",
				Description: "Member to reset",
				Required:    true,
			},
		},
	},
}

// Start opens the gateway connection and registers handlers and slash
// commands.
func (b *Bot) Start() error {
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.cfg.DiscordGuildID, cmd); err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
	}

	log.Printf("Bot logged in as %s", b.session.State.User.Username)
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		log.Printf("Failed to close discord session: %v", err)
	}
}

// onMessageCreate handles the chat trigger word ("ㅊㅊ" by default): a
// plain message in a guild channel counts as a check-in attempt.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.GuildID == "" {
		return
	}
	if strings.TrimSpace(m.Content) != b.cfg.CheckInTrigger {
		return
	}

	result, err := b.service.CheckIn(m.Author.ID, m.GuildID, time.Now())
	if err != nil {
		log.Printf("Check-in failed for %s in %s: %v", m.Author.ID, m.GuildID, err)
		b.react(m.ChannelID, m.ID, "❌")
		return
	}

	if !result.Accepted {
		b.react(m.ChannelID, m.ID, "❌")
		embed := errorEmbed("❌ Already checked in",
			"You already checked in today.\nCome back tomorrow!")
		b.reply(m.ChannelID, m.ID, embed)
		return
	}

	b.react(m.ChannelID, m.ID, "✅")
	b.reply(m.ChannelID, m.ID, b.checkInEmbed(m.Author.Mention(), result))

	if result.LeveledUp() {
		embed := levelUpEmbed(m.Author.Mention(), result.OldLevel, result.NewLevel)
		if result.GrantedRoleID != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "🎭 Role granted",
				Value: fmt.Sprintf("You are now **%s**!", b.notifier.RoleName(m.GuildID, result.GrantedRoleID)),
			})
		}
		b.reply(m.ChannelID, m.ID, embed)
	}
}

func (b *Bot) checkInEmbed(mention string, result *progression.CheckInResult) *discordgo.MessageEmbed {
	if result.NeededXP == 0 {
		return successEmbed("🏆 MAX level!",
			fmt.Sprintf("%s you are already at **MAX level** — and still showing up. 👏", mention))
	}
	return successEmbed("✅ Check-in complete!",
		fmt.Sprintf("%s attendance recorded!\n\n**Level:** %d\n**Next level:**\n    %s",
			mention, result.NewLevel, formatProgressBar(result.ProgressXP, result.NeededXP)))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "checkin":
		b.handleCheckInCommand(i)
	case "rank":
		b.handleRankCommand(i)
	case "leaderboard":
		b.handleLeaderboardCommand(i)
	case "setlevel":
		b.handleSetLevelCommand(i)
	case "reset":
		b.handleResetCommand(i)
	}
}

func (b *Bot) handleCheckInCommand(i *discordgo.InteractionCreate) {
	userID := i.Member.User.ID

	result, err := b.service.CheckIn(userID, i.GuildID, time.Now())
	if err != nil {
		log.Printf("Check-in failed for %s in %s: %v", userID, i.GuildID, err)
		b.respondEmbed(i, errorEmbed("❌ Check-in failed", "Something went wrong, please try again."), false)
		return
	}

	if !result.Accepted {
		b.respondEmbed(i, errorEmbed("❌ Already checked in",
			"You already checked in today.\nCome back tomorrow!"), true)
		return
	}

	embed := b.checkInEmbed(i.Member.Mention(), result)
	if result.LeveledUp() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🎉 Level up!",
			Value: fmt.Sprintf("Level %d → **%d**", result.OldLevel, result.NewLevel),
		})
	}
	b.respondEmbed(i, embed, false)
}

func (b *Bot) handleRankCommand(i *discordgo.InteractionCreate) {
	userID := i.Member.User.ID

	profile, err := b.service.GetProfile(userID, i.GuildID)
	if err != nil {
		log.Printf("Profile lookup failed for %s: %v", userID, err)
		b.respondEmbed(i, errorEmbed("❌ Lookup failed", "Could not load your profile."), true)
		return
	}

	bar := "MAX"
	if profile.NeededXP > 0 {
		bar = formatProgressBar(profile.ProgressXP, profile.NeededXP)
	}
	description := fmt.Sprintf("**Level:** %d\n**Total XP:** %s\n**Next level:**\n    %s",
		profile.User.Level, formatNumber(profile.User.XP), bar)
	if profile.RoleID != "" {
		description += fmt.Sprintf("\n**Tier:** %s", b.notifier.RoleName(i.GuildID, profile.RoleID))
	}
	b.respondEmbed(i, infoEmbed("📊 Your rank", description), true)
}

func (b *Bot) handleLeaderboardCommand(i *discordgo.InteractionCreate) {
	users, err := b.service.Leaderboard(i.GuildID, 10)
	if err != nil {
		log.Printf("Leaderboard lookup failed for %s: %v", i.GuildID, err)
		b.respondEmbed(i, errorEmbed("❌ Lookup failed", "Could not load the leaderboard."), true)
		return
	}

	if len(users) == 0 {
		b.respondEmbed(i, infoEmbed("📊 Leaderboard",
			"No level data yet.\nCheck in to get on the board!"), false)
		return
	}

	var sb strings.Builder
	for rank, user := range users {
		name := b.displayName(i.GuildID, user.UserID)
		sb.WriteString(fmt.Sprintf("%s **%s**\n     Level %d | %s XP\n\n",
			rankEmoji(rank+1), name, user.Level, formatNumber(user.XP)))
	}

	embed := infoEmbed("🏆 Server leaderboard", sb.String())
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Check in daily to level up!"}
	b.respondEmbed(i, embed, false)
}

func (b *Bot) handleSetLevelCommand(i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		b.respondEmbed(i, errorEmbed("❌ Permission denied", "This command is admin only."), true)
		return
	}

	options := i.ApplicationCommandData().Options
	target := options[0].UserValue(b.session)
	level := int(options[1].IntValue())

	result, err := b.service.SetLevel(target.ID, i.GuildID, level)
	if err != nil {
		b.respondEmbed(i, errorEmbed("❌ Invalid level",
			fmt.Sprintf("Level must be between 1 and %d.", b.cfg.MaxLevel)), true)
		return
	}

	description := fmt.Sprintf("%s is now level **%d**.\nTotal XP: %s",
		target.Mention(), result.Level, formatNumber(result.XP))
	if result.Capped {
		description += "\n⚠️ XP was capped at the storage maximum."
	}
	if result.GrantedRoleID != "" {
		description += fmt.Sprintf("\n🎭 Granted **%s**", b.notifier.RoleName(i.GuildID, result.GrantedRoleID))
	}
	b.respondEmbed(i, successEmbed("✅ Level set", description), false)
}

func (b *Bot) handleResetCommand(i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		b.respondEmbed(i, errorEmbed("❌ Permission denied", "This command is admin only."), true)
		return
	}

	target := i.ApplicationCommandData().Options[0].UserValue(b.session)

	if err := b.service.Reset(target.ID, i.GuildID); err != nil {
		log.Printf("Reset failed for %s: %v", target.ID, err)
		b.respondEmbed(i, errorEmbed("❌ Reset failed", "Something went wrong, please try again."), true)
		return
	}

	b.respondEmbed(i, successEmbed("✅ Reset complete",
		fmt.Sprintf("%s's progression was reset to level 1.", target.Mention())), false)
}

// isAdmin accepts members with the Manage Server permission or the
// configured admin role.
func (b *Bot) isAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionManageGuild != 0 {
		return true
	}
	if b.cfg.AdminRoleID == "" {
		return false
	}
	for _, roleID := range i.Member.Roles {
		if roleID == b.cfg.AdminRoleID {
			return true
		}
	}
	return false
}

func (b *Bot) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) reply(channelID, messageID string, embed *discordgo.MessageEmbed) {
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			RepliedUser: false,
			Parse:       []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	})
	if err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) react(channelID, messageID, emoji string) {
	if err := b.session.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		// Missing Add Reactions permission is not worth failing over.
		log.Printf("Failed to add reaction: %v", err)
	}
}

// displayName prefers the guild nickname, falling back to the username
// and finally the raw id for members who left.
func (b *Bot) displayName(guildID, userID string) string {
	member, err := b.session.GuildMember(guildID, userID)
	if err == nil {
		if member.Nick != "" {
			return member.Nick
		}
		return member.User.Username
	}
	user, err := b.session.User(userID)
	if err == nil {
		return user.Username
	}
	return fmt.Sprintf("User %s", userID)
}
