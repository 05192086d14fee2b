// Package observability records what the hooks did. Events are appended to a
// JSON Lines file under the state directory and capture metrics are derived
// from that log on demand. Debug output goes through log/slog.
package observability
