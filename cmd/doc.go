// Package cmd implements the command-line interface of the replicated
// key-value store.
//
// The package is organized into several subpackages:
//
//   - serve: `kv serve` starts a coordinator or replica node, `kv id` starts
//     a standalone id server
//   - client: one-shot requests (get, put, del, print, shutdown), the
//     interactive repl and the perf load test
//   - util: flag helpers and the transport and serializer factories (internal use)
//
// Every flag can also be set as an environment variable with the KV_ prefix
// (e.g. KV_TRANSPORT=http), and .env / .env.local files are read at start.
package cmd
