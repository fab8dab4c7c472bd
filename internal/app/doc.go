// Package app wires the converter's HTTP server: it builds the logger,
// telemetry providers, services, router and http.Server from a loaded
// configuration and runs them until shutdown.
//
// # Initialization Flow
//
//  1. Initialize logging and OpenTelemetry from the configuration
//  2. Create the conversion and health services
//  3. Set up middleware and routes
//  4. Configure the HTTP server
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context, once
// in-flight requests have finished or server.shutdown_timeout has elapsed.
package app
