package testutil

import (
	"context"
	"sync"
)

// SentNotice is one call recorded by RecordingNotifier.
type SentNotice struct {
	To   string
	Key  string
	Vars map[string]string
}

// RecordingNotifier captures every Send. Set Fail to make Send report that
// the message was not accepted.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentNotice
	Fail bool
}

func (n *RecordingNotifier) Send(_ context.Context, address, key string, vars map[string]string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	cp := make(map[string]string, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	n.sent = append(n.sent, SentNotice{To: address, Key: key, Vars: cp})
	return !n.Fail
}

// Sent returns a copy of everything recorded so far.
func (n *RecordingNotifier) Sent() []SentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentNotice(nil), n.sent...)
}

// To returns the notices sent to address, in order.
func (n *RecordingNotifier) To(address string) []SentNotice {
	var out []SentNotice
	for _, s := range n.Sent() {
		if s.To == address {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets everything recorded.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	n.sent = nil
	n.mu.Unlock()
}
