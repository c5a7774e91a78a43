package main

import (
	"os" // Exit codes

	"marketplace/internal/config" // Configuration
	"marketplace/internal/db"     // Database migrations and seeding

	"github.com/sirupsen/logrus" // Logging library
	"github.com/spf13/cobra"     // CLI commands and flags
	"gorm.io/gorm"               // GORM ORM library
)

func main() {
	var seedFile string // Optional --seed flag

	// Default command: migrate, then optionally seed
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Migrate the marketplace schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := connect() // Connect to database
			if err != nil {
				return err
			}
			// Auto-migrate models
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			// Seeding is opt-in
			if seedFile == "" {
				return nil
			}
			data, err := db.LoadSeedFile(seedFile)
			if err != nil {
				return err
			}
			return db.Seed(gdb, data)
		},
	}
	root.Flags().StringVar(&seedFile, "seed", "", "YAML file with categories and users to load after migrating")

	// seed subcommand: load data into an already migrated schema
	seed := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load seed data without migrating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := connect() // Connect to database
			if err != nil {
				return err
			}
			data, err := db.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			return db.Seed(gdb, data)
		},
	}
	root.AddCommand(seed)

	// Run the CLI
	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// connect opens the database named by the environment
func connect() (*gorm.DB, error) {
	cfg, err := config.LoadConfig() // Load environment variables
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.DBDriver, cfg.DSN())
}
