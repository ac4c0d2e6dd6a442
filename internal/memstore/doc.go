// Package memstore is the in-process reference implementation of the
// store contract. It keeps every revision in memory, encoded with the
// wire codec exactly as a durable backend would persist it, so Things read
// back from memstore behave like Things read back from SQLite.
//
// A single RWMutex guards Things, versions, changes, users and documents;
// sequence counters are atomic per name.
package memstore
