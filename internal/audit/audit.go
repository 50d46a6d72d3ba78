// Package audit records one event per pipeline exit. Audit failures never
// block or fail an execution.
package audit

import (
	"github.com/sirupsen/logrus"
)

// Event is the per-execution audit record.
type Event struct {
	AgentID      string   `json:"agentId"`
	Status       string   `json:"status"`
	ReasonCode   string   `json:"reasonCode,omitempty"`
	Provider     string   `json:"provider,omitempty"`
	TxSignature  string   `json:"txSignature,omitempty"`
	PolicyChecks []string `json:"policyChecks,omitempty"`
}

// Sink consumes audit events.
type Sink interface {
	Write(event Event) error
}

// LogSink emits audit events as structured JSON log entries.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(event Event) error {
	s.logger.WithFields(logrus.Fields{
		"event":         "intent.execution",
		"agent_id":      event.AgentID,
		"status":        event.Status,
		"reason_code":   event.ReasonCode,
		"provider":      event.Provider,
		"tx_signature":  event.TxSignature,
		"policy_checks": event.PolicyChecks,
	}).Info("audit event")
	return nil
}

// MultiSink fans an event out to several sinks, returning the first error
// after all sinks have seen the event.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Write(event Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
