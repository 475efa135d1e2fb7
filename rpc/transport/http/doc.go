// Package http implements the rpc transport over HTTP. Each request is a POST
// to /rpc/{serviceId} carrying the serialized message as body.
//
// The client accepts plain host:port endpoints as well as full URLs, selects
// endpoints round-robin and retries failed requests RetryCount times. The
// server runs in the background after Listen and logs every request when the
// log level is debug.
package http
