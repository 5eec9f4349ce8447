// Package notify is the outbound email gateway. A Notifier sends one
// templated message; it reports success or failure and nothing else.
package notify
