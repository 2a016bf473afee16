package config

import (
	"flag"
	"os"
	"time"
)

// parseFlags parses command-line configuration flags.
//
// Flags:
//
//	-r remote document store base URL
//	-s local store sqlite file path (":memory:" for the in-memory mode)
//	-c json file path with configs
//	-request-timeout request timeout (e.g. "30s", "1m")
//	-sync-attempts max delivery attempts per push operation
//	-sync-base-delay initial push backoff delay
//	-sync-max-delay push backoff delay cap
//
// A dedicated FlagSet is used instead of the global one so tests can call
// the builder repeatedly.
func parseFlags() (*Config, error) {
	return parseFlagsFrom(os.Args[1:])
}

func parseFlagsFrom(args []string) (*Config, error) {
	fs := flag.NewFlagSet("organizer", flag.ContinueOnError)

	var remoteURL string
	var storagePath string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var syncAttempts int
	var syncBaseDelay time.Duration
	var syncMaxDelay time.Duration

	fs.StringVar(&remoteURL, "r", "", "Remote document store base URL")
	fs.StringVar(&storagePath, "s", "", "Local store sqlite file path")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Remote request timeout")
	fs.IntVar(&syncAttempts, "sync-attempts", 0, "Max delivery attempts per push")
	fs.DurationVar(&syncBaseDelay, "sync-base-delay", 0, "Initial push backoff delay")
	fs.DurationVar(&syncMaxDelay, "sync-max-delay", 0, "Push backoff delay cap")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Config{
		Remote: Remote{
			BaseURL:        remoteURL,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			Path: storagePath,
		},
		Sync: Sync{
			MaxAttempts: syncAttempts,
			BaseDelay:   syncBaseDelay,
			MaxDelay:    syncMaxDelay,
		},
		jsonFilePath: jsonConfigPath,
	}, nil
}
