// Package readset implements the conflict detector that gates commit votes.
//
// A node marks a key while it serves a local read and unmarks it afterwards.
// A write whose key is marked is voted down for the current commit attempt.
// Writes are never blocked by reads, and reads never wait for writes.
package readset
