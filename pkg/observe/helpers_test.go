package observe

import (
	"fmt"
	"testing"
)

// eventLogger records Logger callbacks as short strings.
type eventLogger struct {
	events []string
}

func (l *eventLogger) add(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLogger) reset() { l.events = nil }

func (l *eventLogger) NodeCreated(n NodeInfo) { l.add("created %s %s", n.Kind, n.Label) }
func (l *eventLogger) ObserverCountChanged(n NodeInfo, count int) {
	l.add("observers %s %d", n.Label, count)
}
func (l *eventLogger) ValueChanged(n NodeInfo, c Change) {
	l.add("set %s %s -> %s", n.Label, c.Old, c.New)
}
func (l *eventLogger) DerivedRecomputed(n NodeInfo, c Change) {
	l.add("recomputed %s %s -> %s changed=%t", n.Label, c.Old, c.New, c.DidChange)
}
func (l *eventLogger) DerivedCleared(n NodeInfo) { l.add("cleared %s", n.Label) }
func (l *eventLogger) EffectCreated(n NodeInfo)  { l.add("effect %s", n.Label) }
func (l *eventLogger) EffectRan(n NodeInfo)      { l.add("run %s", n.Label) }
func (l *eventLogger) EffectFinished(n NodeInfo, err error) {
	if err != nil {
		l.add("failed %s: %v", n.Label, err)
	}
}
func (l *eventLogger) TransactionBegin(tx TxInfo) { l.add("begin %s", tx.Name) }
func (l *eventLogger) TransactionEnd(tx TxInfo)   { l.add("end %s", tx.Name) }

// only returns the recorded events that start with prefix.
func (l *eventLogger) only(prefix string) []string {
	var out []string
	for _, e := range l.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e)
		}
	}
	return out
}

// counter counts calls of a computation or effect body.
type counter struct {
	n int
}

func (c *counter) inc() { c.n++ }

func expectCount(t *testing.T, name string, c *counter, want int) {
	t.Helper()
	if c.n != want {
		t.Errorf("%s: expected %d calls, got %d", name, want, c.n)
	}
}
