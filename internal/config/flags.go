package config

import (
	"flag"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database DSN
//	-apply execute migrations instead of printing the would-be script
//	-token-hash-key one-time-token hash key
//	-reaper-queue-size bound on the pending lazy-expiry delete queue
//
// Remaining positional arguments are collected as module names for the
// migration CLI.
func ParseFlags() *StructuredConfig {
	var databaseDSN string
	var apply bool
	var tokenHashKey string
	var reaperQueueSize int

	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.BoolVar(&apply, "apply", false, "Apply migrations (default: dry run, print only)")
	flag.StringVar(&tokenHashKey, "token-hash-key", "", "One-time-token hash key")
	flag.IntVar(&reaperQueueSize, "reaper-queue-size", 0, "Pending expiry-delete queue size")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TokenHashKey: tokenHashKey,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Migrate: Migrate{
			Apply:   apply,
			Modules: flag.Args(),
		},
		Workers: Workers{
			ReaperQueueSize: reaperQueueSize,
		},
	}
}
