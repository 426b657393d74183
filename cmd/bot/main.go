package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/hearth-club/levelbot/internal/auth"
	"github.com/hearth-club/levelbot/internal/bot"
	"github.com/hearth-club/levelbot/internal/clock"
	"github.com/hearth-club/levelbot/internal/config"
	"github.com/hearth-club/levelbot/internal/curve"
	"github.com/hearth-club/levelbot/internal/database"
	"github.com/hearth-club/levelbot/internal/handlers"
	"github.com/hearth-club/levelbot/internal/notifier"
	"github.com/hearth-club/levelbot/internal/progression"
	"github.com/hearth-club/levelbot/internal/store"
	"github.com/hearth-club/levelbot/internal/tier"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Progression engine
	xpCurve := curve.New(cfg.BaseXPRequirement, cfg.XPMultiplier, cfg.MaxLevel, cfg.MaxXP)
	dayKey := clock.NewDayKey(cfg.DayUTCOffsetHours, cfg.DayRolloverHour)
	progressionStore := store.New(db, xpCurve, dayKey)

	bands := make([]tier.Band, 0, len(cfg.RoleTiers))
	for _, entry := range cfg.RoleTiers {
		minLevel, maxLevel, roleID, err := config.ParseTierEntry(entry)
		if err != nil {
			log.Fatalf("Invalid ROLE_TIERS entry: %v", err)
		}
		bands = append(bands, tier.Band{MinLevel: minLevel, MaxLevel: maxLevel, RoleID: roleID})
	}
	tiers := tier.NewResolver(bands)

	// Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatalf("Failed to create discord session: %v", err)
	}
	discordNotifier := notifier.NewDiscordNotifier(session)

	service := progression.NewService(progressionStore, xpCurve, tiers, discordNotifier, cfg.XPPerAttendance)

	// Start the bot
	levelBot := bot.New(session, service, discordNotifier, cfg)
	if err := levelBot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}
	defer levelBot.Stop()

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db, discordNotifier)
	progressionHandler := handlers.NewProgressionHandler(service, authHandler)
	apiKeyHandler := handlers.NewAPIKeyHandler(db)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, progressionHandler, apiKeyHandler)

	// Start Server
	go func() {
		log.Printf("Starting control plane on port %s", cfg.Port)
		if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")
}
