package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"spacebook/internal/database"
	"spacebook/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type seedEntry struct {
	UserID           int64   `yaml:"user_id"`
	OpenTime         string  `yaml:"open_time"`
	CloseTime        string  `yaml:"close_time"`
	NumberOfPeople   int     `yaml:"number_of_people"`
	Payment          float64 `yaml:"payment"`
	GroupDescription string  `yaml:"group_description"`
	Status           string  `yaml:"status"`
}

type seedConfig struct {
	Reservations []seedEntry `yaml:"reservations"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("seed", "configs/seed.yaml", "path to seed.yaml")
		dbPath   = flag.String("db", "./data/reservations.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var cfg seedConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	if len(cfg.Reservations) == 0 {
		return fmt.Errorf("no reservations in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	for _, entry := range cfg.Reservations {
		r, err := toReservation(entry)
		if err != nil {
			return fmt.Errorf("entry for user %d: %w", entry.UserID, err)
		}
		if err = db.CreateReservation(ctx, r); err != nil {
			return fmt.Errorf("create reservation for user %d: %w", entry.UserID, err)
		}
		created++
	}

	fmt.Printf("done: created=%d\n", created)
	return nil
}

func toReservation(entry seedEntry) (*models.Reservation, error) {
	if entry.UserID == 0 {
		return nil, fmt.Errorf("user_id is required")
	}
	open, err := time.Parse(time.RFC3339, entry.OpenTime)
	if err != nil {
		return nil, fmt.Errorf("open_time: %w", err)
	}
	close, err := time.Parse(time.RFC3339, entry.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("close_time: %w", err)
	}
	if !open.Before(close) {
		return nil, fmt.Errorf("close_time must be after open_time")
	}

	status := entry.Status
	if status == "" {
		status = models.StatusPending
	}
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	return &models.Reservation{
		UserID:           entry.UserID,
		OpenTime:         open.UTC(),
		CloseTime:        close.UTC(),
		NumberOfPeople:   entry.NumberOfPeople,
		Payment:          entry.Payment,
		GroupDescription: entry.GroupDescription,
		Status:           status,
	}, nil
}
