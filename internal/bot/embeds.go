package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	colorSuccess = 0x00FF00
	colorError   = 0xFF0000
	colorInfo    = 0x3498DB
	colorLevelUp = 0xFFD700
)

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: colorSuccess}
}

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: colorError}
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: colorInfo}
}

func levelUpEmbed(mention string, oldLevel, newLevel int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎉 Level up!",
		Description: fmt.Sprintf("%s reached level **%d** (from %d)!", mention, newLevel, oldLevel),
		Color:       colorLevelUp,
	}
}

// formatProgressBar renders progress toward the next level as a fixed
// width bar, e.g. "█████░░░░░ 50/100 XP (50.0%)".
func formatProgressBar(progress, needed int64) string {
	const width = 10
	if needed <= 0 {
		return "MAX"
	}
	// Ratio in floats: progress*width overflows int64 for the huge
	// per-level spans near the top of the curve.
	ratio := float64(progress) / float64(needed)
	filled := int(ratio * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	percent := ratio * 100
	return fmt.Sprintf("%s%s %s/%s XP (%.1f%%)",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		formatNumber(progress),
		formatNumber(needed),
		percent,
	)
}

// formatNumber groups digits with commas: 1234567 -> "1,234,567".
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

var rankEmojis = map[int]string{
	1: "🥇",
	2: "🥈",
	3: "🥉",
}

func rankEmoji(rank int) string {
	if emoji, ok := rankEmojis[rank]; ok {
		return emoji
	}
	return fmt.Sprintf("%d.", rank)
}
