package config

const (
	DefaultDatabasePath = "./migrator.db"

	// DefaultBatchConcurrency bounds how many items a parallel batch
	// keeps in flight against the catalog APIs.
	DefaultBatchConcurrency = 500
)
