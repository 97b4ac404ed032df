package goRecover

import (
	"io"

	internalaudit "github.com/MrEthical07/goRecover/internal/audit"
)

// AuditEvent is one security-relevant outcome. Events never carry passwords,
// recovery tokens, or hashes.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's background dispatcher.
type AuditSink = internalaudit.Sink

type (
	AuditOutcome   = internalaudit.Outcome
	AuditSinkFunc  = internalaudit.SinkFunc
	AuditByOutcome = internalaudit.ByOutcome
	AuditChan      = internalaudit.Chan
	AuditJSONLines = internalaudit.JSONLines
)

const (
	OutcomeSucceeded = internalaudit.OutcomeSucceeded
	OutcomeRejected  = internalaudit.OutcomeRejected
	OutcomeThrottled = internalaudit.OutcomeThrottled
	OutcomeFailed    = internalaudit.OutcomeFailed
)

// DiscardAudit drops every event.
var DiscardAudit = internalaudit.Discard

func NewAuditChan(buffer int) *AuditChan {
	return internalaudit.NewChan(buffer)
}

// NewAuditJSONLines writes one JSON object per line to w.
func NewAuditJSONLines(w io.Writer) *AuditJSONLines {
	return internalaudit.NewJSONLines(w)
}

func AuditTee(sinks ...AuditSink) AuditSink {
	return internalaudit.Tee(sinks...)
}
