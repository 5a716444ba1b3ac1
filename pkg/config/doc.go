// Package config provides configuration management for the anistream edge
// service.
//
// Configuration is read from a YAML file, completed with defaults, overridden
// from the environment and validated as a whole.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")              // file only
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml") // file + env
//
// LoadConfigWithEnvOverrides tolerates a missing file, so a deployment can be
// configured from the environment alone.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ANISTREAM_SECTION_FIELD:
//
//   - ANISTREAM_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ANISTREAM_UPSTREAM_BASE_URL overrides upstream.base_url
//   - ANISTREAM_CACHE_BACKEND overrides cache.backend
//   - ANISTREAM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// The upstream credential is never part of the configuration. It lives in the
// secret store (by default the TMDB_API_KEY environment variable) and is
// resolved per request.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast, reporting every invalid field)
//
// # Example
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	routing:
//	  api_prefix: "/api/"
//	upstream:
//	  base_url: "https://api.themoviedb.org/3"
//	  secret_name: "tmdb-api-key"
//	assets:
//	  backend: dir
//	  dir: ./dist
//	cache:
//	  backend: sqlite
//	  sqlite:
//	    path: data/cache.db
//	  prune_schedule: "*/15 * * * *"
package config
