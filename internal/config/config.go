package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	DiscordBotToken     string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordClientID     string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID      string `mapstructure:"DISCORD_GUILD_ID"`
	AdminRoleID         string `mapstructure:"ADMIN_ROLE_ID"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`

	CheckInTrigger    string  `mapstructure:"CHECKIN_TRIGGER"`
	XPPerAttendance   int64   `mapstructure:"XP_PER_ATTENDANCE"`
	BaseXPRequirement int64   `mapstructure:"BASE_XP_REQUIREMENT"`
	XPMultiplier      float64 `mapstructure:"XP_MULTIPLIER"`
	MaxLevel          int     `mapstructure:"MAX_LEVEL"`
	MaxXP             int64   `mapstructure:"MAX_XP"`

	// The attendance day rolls over at DayRolloverHour local time in a
	// fixed UTC+DayUTCOffsetHours zone, not at UTC midnight.
	DayUTCOffsetHours int `mapstructure:"DAY_UTC_OFFSET_HOURS"`
	DayRolloverHour   int `mapstructure:"DAY_ROLLOVER_HOUR"`

	// Each entry is "minLevel:maxLevel:roleID", evaluated in order.
	RoleTiers []string `mapstructure:"ROLE_TIERS"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "levelbot.db")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("CHECKIN_TRIGGER", "ㅊㅊ")
	viper.SetDefault("XP_PER_ATTENDANCE", 50)
	viper.SetDefault("BASE_XP_REQUIREMENT", 100)
	viper.SetDefault("XP_MULTIPLIER", 1.5)
	viper.SetDefault("MAX_LEVEL", 100)
	// Keep stored XP inside the sqlite signed 64-bit INTEGER range.
	viper.SetDefault("MAX_XP", int64(9_000_000_000_000_000_000))
	viper.SetDefault("DAY_UTC_OFFSET_HOURS", 9)
	viper.SetDefault("DAY_ROLLOVER_HOUR", 7)
	viper.SetDefault("ROLE_TIERS", []string{})

	viper.BindEnv("PORT")
	viper.BindEnv("DATABASE_PATH")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_REDIRECT_URL")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("ADMIN_ROLE_ID")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("CHECKIN_TRIGGER")
	viper.BindEnv("XP_PER_ATTENDANCE")
	viper.BindEnv("BASE_XP_REQUIREMENT")
	viper.BindEnv("XP_MULTIPLIER")
	viper.BindEnv("MAX_LEVEL")
	viper.BindEnv("MAX_XP")
	viper.BindEnv("DAY_UTC_OFFSET_HOURS")
	viper.BindEnv("DAY_ROLLOVER_HOUR")
	viper.BindEnv("ROLE_TIERS")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}

// ParseTierEntry parses a "minLevel:maxLevel:roleID" role tier entry.
func ParseTierEntry(entry string) (minLevel, maxLevel int, roleID string, err error) {
	parts := strings.SplitN(entry, ":", 3)
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("invalid role tier entry %q, want min:max:roleID", entry)
	}
	minLevel, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid min level in %q: %w", entry, err)
	}
	maxLevel, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid max level in %q: %w", entry, err)
	}
	return minLevel, maxLevel, parts[2], nil
}
