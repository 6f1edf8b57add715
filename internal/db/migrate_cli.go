package db

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	// Open database connection without running schema initialization
	// (migrations manage the schema)
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("Migrations applied")

	case "down":
		if err := database.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("Rolled back one migration")

	case "status":
		status, err := database.GetMigrationStatus()
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		fmt.Printf("Current version: %v\n", status["current_version"])
		fmt.Printf("Dirty: %v\n", status["dirty"])
		fmt.Printf("Migrations table exists: %v\n", status["migrations_table_exists"])

	case "version":
		if len(args) < 2 {
			log.Fatal("Usage: dyno migrate version <version_number>")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatalf("Invalid version %q: %v", args[1], err)
		}
		if err := database.MigrateTo(uint(version)); err != nil {
			log.Fatalf("Migration to version %d failed: %v", version, err)
		}
		fmt.Printf("Migrated to version %d\n", version)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: dyno migrate force <version_number>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version %q: %v", args[1], err)
		}
		if err := database.MigrateForce(version); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		fmt.Printf("Forced migration version to %d\n", version)

	default:
		PrintMigrateHelp()
		os.Exit(1)
	}
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: dyno migrate <action> [args]

Actions:
  up                  apply all pending migrations
  down                roll back the most recent migration
  status              show current migration version and dirty state
  version <n>         migrate up or down to version n
  force <n>           force the recorded version to n (recovery only)`)
}
