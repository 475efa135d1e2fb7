// Package store defines IStore, the local key-value map each node applies
// committed commands to.
//
// The map itself is not replicated: the replication package decides which
// writes reach which node and in what order, and then calls Put and Delete on
// every node's store. Reads are served from the local store directly.
//
// The only implementation is the in-memory, disk-persisted store in the
// "github.com/panunburn/kv/lib/store/lstore" package.
package store
