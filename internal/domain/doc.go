// Package domain contains the core entities and error categories shared by
// the queue, the analysis task and the reminder sweep. It has no dependency
// on storage or transport packages.
package domain
