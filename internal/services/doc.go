// Package services implements the business logic layer of the converter.
// Handlers and the CLI share it, so every conversion reads, melts and
// exports the same way regardless of the entry point.
//
// # Available Services
//
//   - ConversionService: loads uploads, previews header resolution, converts and exports
//   - HealthService: liveness, health and version information
//
// # Error Handling
//
// Failures are returned as *errors.AppError so transports can map them:
//
//   - VALIDATION for bad selections (unknown columns, no date columns, bad granularity)
//   - PARSING for unreadable input files
//   - CONVERSION for reshape failures such as PERIODID collisions
//   - STORAGE for output write failures
//
// Context cancellation is returned unwrapped.
package services
