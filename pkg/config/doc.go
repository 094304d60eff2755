// Package config loads and validates the exceller configuration.
//
// Configuration comes from a YAML file with environment variable overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("exceller.yaml")
//
// Values are applied in this order, later overriding earlier:
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. EXCELLER_SECTION_FIELD environment variables
//
// The result is then validated and every problem is reported at once:
//
//	configuration validation failed with 2 errors:
//	  - history.backend: invalid history backend "redis": must be 'sqlite' or 'memory'
//	  - telemetry.logging.level: invalid logging level "loud": ...
//
// A minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	schemas:
//	  path: "./schemas"
//	  watch: true
//
//	history:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/history.db"
//	  retention:
//	    days: 30
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// Schemas can instead be pulled from Git; schemas.path is then replaced by
// the schema directory inside the clone:
//
//	schemas:
//	  git:
//	    repository: "https://git.example.com/team/schemas.git"
//	    branch: "main"
//	    dir: "schemas"
//	    poll_interval: 1m
//	    auth:
//	      type: "token" # token from EXCELLER_SCHEMAS_GIT_AUTH_TOKEN
//
// Unknown keys are rejected so that a misspelt option fails loudly.
package config
