package main

import (
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/config"  // Custom import path (Config)
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/db"      // Custom import path (Database)
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular" // Custom import path (Record store)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Migrate the embedded user database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Create any missing table files with their headers
	tab, err := tabular.Open(cfg.DataDir)
	if err != nil {
		logrus.Fatalf("failed to open record store: %v", err)
	}
	if err := tab.EnsureAll(); err != nil {
		logrus.Fatalf("failed to initialize table files: %v", err)
	}

	logrus.Info("Migration complete")
}
