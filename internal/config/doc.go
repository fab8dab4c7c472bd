// Package config provides configuration loading for the IBP converter.
//
// # Configuration Sources
//
// Values are layered, later sources overriding earlier ones:
//
//  1. Default() values
//  2. A YAML file named by IBP_CONFIG_FILE, or config.yaml / configs/config.yaml
//  3. Environment variables with the IBP_ prefix
//
// # Environment Variables
//
// Nested fields join their section names with underscores:
//
//	IBP_SERVER_PORT=8080
//	IBP_SERVER_MAX_UPLOAD_BYTES=33554432
//	IBP_LOGGING_LEVEL=debug
//	IBP_CONVERSION_DEFAULT_GRANULARITY=WEEK
//	IBP_TELEMETRY_ENABLED=false
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
