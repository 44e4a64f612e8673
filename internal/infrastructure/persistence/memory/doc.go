// Package memory provides in-process implementations of the domain
// repositories. They back the "memory" database driver and the service
// tests. Every read and write works on deep copies, so callers never share
// state with the store and optimistic locking behaves as it does in SQL.
package memory
