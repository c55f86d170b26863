package config

// Constants defining default values for application configuration
const (
	DefaultFeedsCSVPath = "./feeds.csv"
	DefaultDBPath       = "./newsdeck.db"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultWorkerCount   = 4  // Concurrent feed fetches per ingestion pass
	DefaultInterval      = 30 // Minutes between ingestion passes, 0 for one-shot
	DefaultRetentionDays = 14 // Days to keep unbookmarked items before purging

	DefaultFetchTimeoutSec = 15 // Per-feed HTTP fetch timeout

	DefaultLogLevel = "info"
)
