// Package lstore implements store.IStore as an in-memory map that can be saved
// to and loaded from a bbolt file.
//
// Key Features:
//   - Lock-free concurrent reads and writes on a xsync.MapOf
//   - Entries returns a detached copy that later writes do not change
//   - Save writes the full contents into a single bbolt bucket in one transaction
//   - Load starts with an empty store and a warning when the file does not exist
//
// Usage Example:
//
//	s, err := lstore.Load("./kv.store")
//	if err != nil {
//		return err
//	}
//	s.Put("a", "b")
//	defer s.Save("./kv.store")
package lstore
