// Package store holds the persistence primitives shared by the PostgreSQL
// implementations and the error values callers match with errors.Is.
package store
