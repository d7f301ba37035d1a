// Package notify is the toast analog: ephemeral user-visible notifications
// surfaced by the HTTP client when it classifies server and transport errors.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier receives user-visible notifications.
type Notifier interface {
	Error(msg string)
	Info(msg string)
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLog creates a Notifier backed by log.
func NewLog(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Error(msg string) { n.log.Error(msg) }
func (n *LogNotifier) Info(msg string)  { n.log.Info(msg) }

// Recorder captures notifications for tests.
type Recorder struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *Recorder) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
}

// Errors returns a copy of the recorded error notifications.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Infos returns a copy of the recorded info notifications.
func (r *Recorder) Infos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}
