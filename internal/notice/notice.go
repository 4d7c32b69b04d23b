// Package notice carries user-visible messages from the core to whatever
// surface is showing them (the console, a terminal, a test recorder).
package notice

import (
	"sync"
	"time"
)

type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one message for the user.
type Notice struct {
	Level   Level
	Message string
	Time    time.Time
}

func New(level Level, msg string) Notice {
	return Notice{Level: level, Message: msg, Time: time.Now()}
}

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Nop discards every notice.
var Nop Notifier = NotifierFunc(func(Notice) {})

// Recorder keeps notices in memory until drained.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// All returns a copy of every recorded notice.
func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Drain returns the recorded notices and forgets them.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Fanout sends each notice to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(n Notice) {
	for _, x := range f {
		x.Notify(n)
	}
}
