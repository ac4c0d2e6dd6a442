// Package sqlstore is the durable SQLite backend of the store contract.
//
// Every revision is kept in the versions table in the codec's wire form;
// things holds the latest revision number and write order of each key, and
// thing_props indexes the latest revision's property values for listing
// filters. Each Write runs in one transaction and appends one row to
// changes plus one change_keys row per touched key.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: SQLite allows a single writer
//
// The dictionary store (docs, doc_props) lives in the same database.
package sqlstore
