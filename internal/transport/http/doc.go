// Package http implements the converter's HTTP handlers. Handlers parse
// and validate requests, call the conversion service and render the result;
// errors are rendered as RFC 7807 problem details by the shared error
// handler.
//
// # Endpoints
//
//	GET  /api/health                 health with parser self-test
//	GET  /api/health/live            liveness
//	GET  /api/version                version information
//	GET  /api/v1/periods/parse       resolve ?label=...&granularity=...
//	POST /api/v1/periods/parse       resolve a JSON batch of labels
//	POST /api/v1/preview             multipart upload, returns columns and header resolution
//	POST /api/v1/convert             multipart upload, returns the IBP upload file
//
// Uploads are multipart/form-data with the file in the "file" part.
package http
