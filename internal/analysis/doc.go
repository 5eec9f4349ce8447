// Package analysis compares a CV against a job description with an AI
// completer and persists the structured result. It runs inline or as a
// queued task, and caches fit scores per application and job description.
package analysis
