// Package task manages background job queuing, processing, and lifecycle.
//
// Tasks are persisted through a TaskStore and claimed by workers under a
// lease. A task whose lease expires while still active is handed to the next
// worker that asks, so delivery is at-least-once and handlers must tolerate
// re-execution. Only the current lease holder may report progress, complete
// or fail a task; workers renew their lease while a handler runs. Terminal
// tasks (completed or failed) never change again.
package task
