// Package logx wraps zerolog behind a small structured logging API.
//
// It provides:
//   - Field closures (String, Int, Err, ...) applied per call site
//   - a Service whose sinks and level can be swapped at runtime
//   - an optional rate-limited mirror hook for forwarding WARN+ lines
//     to an out-of-band channel (e.g. the owner's Telegram chat)
package logx
