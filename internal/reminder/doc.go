// Package reminder implements the daily follow-up sweep.
//
// A sweep selects applications whose reminder date is tomorrow in the
// reference time zone and that have no sent marker, emails each owner, and
// records a marker right after every successful send. The marker table is
// the only memory between runs, which makes repeated sweeps idempotent.
package reminder
