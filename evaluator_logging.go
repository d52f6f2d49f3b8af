package immutable

import "time"

// EvaluatorLogEvent describes one expression evaluated against a snapshot.
// Rule is empty for ad hoc Evaluate calls.
type EvaluatorLogEvent struct {
	Engine   string
	Schema   string
	Rule     string
	Expr     string
	Scope    string
	Duration time.Duration
	Err      error
}

// Failed reports whether the evaluation returned an error.
func (e EvaluatorLogEvent) Failed() bool {
	return e.Err != nil
}

// EvaluatorLogger receives an event after every evaluation.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger sets the logger notified by Evaluate, EvaluateWith and
// Validate. A nil logger disables logging.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
