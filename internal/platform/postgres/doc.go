// Package postgres implements the task queue store, the analysis store and
// the reminder store on PostgreSQL through database/sql and the pgx driver.
// Schema migrations are embedded and applied with goose.
package postgres
