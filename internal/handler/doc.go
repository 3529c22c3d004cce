// Package handler implements the lanscope HTTP API.
//
// The API is read-mostly: it serves the latest sweep and the classification
// cache, lets a client trigger a sweep, and streams sweep events.
//
// # Routes
//
//	GET  /api/sweeps/latest   most recent sweep (404 before the first)
//	POST /api/sweeps          run a sweep: {"target": "...", "force": false}
//	GET  /api/cache           every cached record (?format=json|yaml)
//	GET  /api/cache/{mac}     one cached record
//	GET  /api/events          Server-Sent Events stream of sweep events
//
// Errors are returned as JSON with {error, details} and an appropriate
// status code. A sweep whose results could not all be persisted still
// returns 200, with the failures listed under warnings.
package handler
