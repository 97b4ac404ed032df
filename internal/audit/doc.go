// Package audit carries outcome-keyed events for recovery, password and
// session operations.
//
// Every [Event] is classified by [Outcome] (succeeded, rejected, throttled,
// failed) so consumers can route backend failures apart from ordinary
// rejections with [ByOutcome] and fan out with [Tee]. [Chan] and
// [JSONLines] are the terminal sinks; [Dispatcher] moves events off the
// request path over internal/queue.
//
// This package does not decide which events to emit; the Engine does.
package audit
