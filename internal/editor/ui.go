package editor

import (
	"context"
	"log/slog"
	"sync"
)

// Severity of a user-facing message.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Message is a user-facing notification.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Notifier shows messages to the user.
type Notifier interface {
	Notify(msg Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Message)

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg Message) { f(msg) }

// Info is a shorthand for an informational message.
func Info(n Notifier, text string) {
	n.Notify(Message{Severity: SeverityInfo, Text: text})
}

// Error is a shorthand for an error message.
func Error(n Notifier, text string) {
	n.Notify(Message{Severity: SeverityError, Text: text})
}

// LogNotifier writes messages to a logger.
func LogNotifier(logger *slog.Logger) Notifier {
	return NotifierFunc(func(msg Message) {
		if msg.Severity == SeverityError {
			logger.Warn("user message", slog.String("text", msg.Text))
			return
		}
		logger.Info("user message", slog.String("text", msg.Text))
	})
}

// Fanout delivers every message to all notifiers.
func Fanout(ns ...Notifier) Notifier {
	return NotifierFunc(func(msg Message) {
		for _, n := range ns {
			if n != nil {
				n.Notify(msg)
			}
		}
	})
}

// Recorder keeps every message it receives. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

// Notify records msg.
func (r *Recorder) Notify(msg Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}

// Prompter asks the user to accept or decline an action.
type Prompter interface {
	Confirm(ctx context.Context, message, accept, decline string) (bool, error)
}

// Answer is a Prompter that always gives the same answer. Remote callers
// send their decision together with the command.
type Answer bool

// Confirm returns the fixed answer.
func (a Answer) Confirm(context.Context, string, string, string) (bool, error) {
	return bool(a), nil
}
