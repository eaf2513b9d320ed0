/*
Package api is the HTTP and WebSocket boundary: report intake, case
browsing, officer edge curation, alert workflow, audit, uploads and the
two live streams (caseboard, alerts).

The API is a thin shell over the engine; it validates input, maps
engine errors to status codes, and never touches graph internals
directly.
*/
package api
