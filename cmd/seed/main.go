package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"fastticket/internal/config"
	"fastticket/internal/database"
	"fastticket/internal/models"
	"fastticket/internal/repository"
)

var (
	count    = flag.Int("count", 10, "Number of events to generate")
	capacity = flag.Int("capacity", 100, "Ticket capacity per generated event")
	dryRun   = flag.Bool("dry-run", false, "Show what would be generated without writing")
)

var venues = []string{
	"Grand Arena", "City Concert Hall", "Riverside Amphitheater",
	"Opera House", "Exhibition Center", "Stadium North",
}

var genres = []string{
	"Symphony Night", "Rock Festival", "Jazz Evening",
	"Stand-up Special", "Theatre Premiere", "Film Retrospective",
}

func main() {
	flag.Parse()

	slog.Info("Starting events seeder...")

	cfg := config.LoadEvents()
	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunEventsMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.NewEventRepository(db)
	ctx := context.Background()

	for i := 0; i < *count; i++ {
		event := generateEvent(i)

		if *dryRun {
			slog.Info("Would create event",
				"name", event.Name, "location", event.Location,
				"total_tickets", event.TotalTickets, "date", event.Date)
			continue
		}

		if err := repo.Create(ctx, event); err != nil {
			slog.Error("Failed to create event", "name", event.Name, "error", err)
			continue
		}
		slog.Info("Created event", "event_id", event.ID, "name", event.Name)
	}

	slog.Info("Seeding completed", "count", *count)
}

func generateEvent(i int) *models.Event {
	name := fmt.Sprintf("%s #%d", genres[rand.Intn(len(genres))], i+1)
	description := fmt.Sprintf("Generated test event %d", i+1)
	price := decimal.NewFromInt(int64(20 + rand.Intn(180)))

	return &models.Event{
		Name:         name,
		Description:  &description,
		Location:     venues[rand.Intn(len(venues))],
		Price:        price,
		TotalTickets: *capacity,
		Date:         time.Now().AddDate(0, 1, rand.Intn(60)),
	}
}
