// Package config holds the boundq runtime configuration. It exposes a
// Default() baseline and an overlay of BOUNDQ_* environment variables,
// optionally seeded from a .env file.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// command-line flags override cfg here
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
