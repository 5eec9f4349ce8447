// Package api is the HTTP surface: analysis submission, task status, manual
// reminder sweeps and health. Handlers translate requests into calls on the
// analysis service, the task queue and the reminder scheduler, and map
// their errors to status codes in one place (errors.go).
package api
