package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Source
		Target
		Migration
		Scanner
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Source holds the default source catalog account. Runs may carry
	// their own account/token and override these.
	Source struct {
		Endpoint string
		Account  string
		Token    string
	}

	// Target holds the target catalog account everything migrates into.
	Target struct {
		Endpoint string
		Account  string
		Token    string
	}

	Migration struct {
		BatchConcurrency int           // in-flight items for parallel batches
		StepDelay        time.Duration // pause between steps, keeps rate limiters happy
		PageSize         int           // page size for paginated source reads
	}

	Scanner struct {
		Enabled  bool
		Schedule string // Cron format: "* * * * *" = every minute
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("source_endpoint", "")
	v.SetDefault("source_account", "")
	v.SetDefault("source_token", "")
	v.SetDefault("target_endpoint", "")
	v.SetDefault("target_account", "")
	v.SetDefault("target_token", "")
	v.SetDefault("batch_concurrency", DefaultBatchConcurrency)
	v.SetDefault("step_delay", "2s")
	v.SetDefault("page_size", 50)
	v.SetDefault("scanner_enabled", true)
	v.SetDefault("scanner_schedule", "* * * * *") // Every minute
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1) // One worker: imports are single-flight
	v.SetDefault("task_release_after", "30m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Source: Source{
			Endpoint: v.GetString("SOURCE_ENDPOINT"),
			Account:  v.GetString("SOURCE_ACCOUNT"),
			Token:    v.GetString("SOURCE_TOKEN"),
		},
		Target: Target{
			Endpoint: v.GetString("TARGET_ENDPOINT"),
			Account:  v.GetString("TARGET_ACCOUNT"),
			Token:    v.GetString("TARGET_TOKEN"),
		},
		Migration: Migration{
			BatchConcurrency: v.GetInt("BATCH_CONCURRENCY"),
			StepDelay:        v.GetDuration("STEP_DELAY"),
			PageSize:         v.GetInt("PAGE_SIZE"),
		},
		Scanner: Scanner{
			Enabled:  v.GetBool("SCANNER_ENABLED"),
			Schedule: v.GetString("SCANNER_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
