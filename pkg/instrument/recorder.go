package instrument

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/vango-dev/observe/pkg/observe"
)

// DefaultEventLimit is the number of events a Recorder keeps by default.
const DefaultEventLimit = 1000

// Entity is the Recorder's view of one node.
type Entity struct {
	ID        uint64 `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Observers int    `json:"observers"`

	// Value is the last formatted value; empty for effects and signals.
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"hasValue"`

	// Updates counts value changes (leaves) or recomputes (derived).
	Updates int `json:"updates"`

	// Runs counts effect runs.
	Runs      int    `json:"runs,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// EventType names a recorded lifecycle event.
type EventType string

const (
	EventNodeCreated       EventType = "node-created"
	EventObserversChanged  EventType = "observers-changed"
	EventValueChanged      EventType = "value-changed"
	EventDerivedRecomputed EventType = "derived-recomputed"
	EventDerivedCleared    EventType = "derived-cleared"
	EventEffectCreated     EventType = "effect-created"
	EventEffectRan         EventType = "effect-ran"
	EventEffectFinished    EventType = "effect-finished"
	EventTransactionBegin  EventType = "transaction-begin"
	EventTransactionEnd    EventType = "transaction-end"
)

// Event is one recorded lifecycle event.
type Event struct {
	Seq    uint64    `json:"seq"`
	Type   EventType `json:"type"`
	NodeID uint64    `json:"node,omitempty"`
	TxID   uint64    `json:"tx,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Snapshot is a point-in-time copy of a Recorder's state.
type Snapshot struct {
	Entities []Entity       `json:"entities"`
	Summary  map[string]int `json:"summary"`
	Events   []Event        `json:"events"`
}

// Recorder is an observe.Logger that keeps an entity table of every node
// it has seen and a bounded log of recent events, for inspection tools.
type Recorder struct {
	mu       sync.Mutex
	entities map[uint64]*Entity
	events   []Event
	limit    int
	seq      uint64
}

var _ observe.Logger = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithEventLimit sets how many recent events are kept. Zero disables the
// event log.
func WithEventLimit(n int) RecorderOption {
	return func(r *Recorder) {
		r.limit = n
	}
}

// NewRecorder creates an empty Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		entities: make(map[uint64]*Entity),
		limit:    DefaultEventLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) entity(n observe.NodeInfo) *Entity {
	e, ok := r.entities[n.ID]
	if !ok {
		e = &Entity{ID: n.ID, Kind: n.Kind.String(), Label: n.Label}
		r.entities[n.ID] = e
	}
	return e
}

func (r *Recorder) record(ev Event) {
	r.seq++
	if r.limit <= 0 {
		return
	}
	ev.Seq = r.seq
	if len(r.events) >= r.limit {
		copy(r.events, r.events[1:])
		r.events = r.events[:len(r.events)-1]
	}
	r.events = append(r.events, ev)
}

func (r *Recorder) NodeCreated(n observe.NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entity(n)
	r.record(Event{Type: EventNodeCreated, NodeID: n.ID, Detail: n.Label})
}

func (r *Recorder) ObserverCountChanged(n observe.NodeInfo, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entity(n).Observers = count
	r.record(Event{Type: EventObserversChanged, NodeID: n.ID, Detail: fmt.Sprint(count)})
}

func (r *Recorder) ValueChanged(n observe.NodeInfo, c observe.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entity(n)
	e.Updates++
	if n.Kind != observe.KindSignal {
		e.Value = c.New
		e.HasValue = true
	}
	r.record(Event{Type: EventValueChanged, NodeID: n.ID, Detail: c.Old + " -> " + c.New})
}

func (r *Recorder) DerivedRecomputed(n observe.NodeInfo, c observe.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entity(n)
	e.Updates++
	e.Value = c.New
	e.HasValue = true
	detail := c.New
	if !c.DidChange {
		detail = "unchanged"
	}
	r.record(Event{Type: EventDerivedRecomputed, NodeID: n.ID, Detail: detail})
}

func (r *Recorder) DerivedCleared(n observe.NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entity(n)
	e.Value = ""
	e.HasValue = false
	r.record(Event{Type: EventDerivedCleared, NodeID: n.ID})
}

func (r *Recorder) EffectCreated(n observe.NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entity(n)
	r.record(Event{Type: EventEffectCreated, NodeID: n.ID, Detail: n.Label})
}

func (r *Recorder) EffectRan(n observe.NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entity(n).Runs++
	r.record(Event{Type: EventEffectRan, NodeID: n.ID})
}

func (r *Recorder) EffectFinished(n observe.NodeInfo, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entity(n)
	e.LastError = ""
	if err != nil {
		e.LastError = err.Error()
	}
	r.record(Event{Type: EventEffectFinished, NodeID: n.ID, Detail: e.LastError})
}

func (r *Recorder) TransactionBegin(tx observe.TxInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Event{Type: EventTransactionBegin, TxID: tx.ID, Detail: tx.Name})
}

func (r *Recorder) TransactionEnd(tx observe.TxInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Event{
		Type:   EventTransactionEnd,
		TxID:   tx.ID,
		Detail: fmt.Sprintf("%s passes=%d runs=%d", tx.Name, tx.Passes, tx.Runs),
	})
}

// Entity returns the entity with the given node ID.
func (r *Recorder) Entity(id uint64) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Lookup returns the first entity with the given label, in creation order.
func (r *Recorder) Lookup(label string) (Entity, bool) {
	for _, e := range r.Entities() {
		if e.Label == label {
			return e, true
		}
	}
	return Entity{}, false
}

// Entities returns every entity ordered by node ID, which is creation order.
func (r *Recorder) Entities() []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Summary returns the number of entities per kind.
func (r *Recorder) Summary() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, e := range r.entities {
		out[e.Kind]++
	}
	return out
}

// Snapshot copies the entity table, summary and event log.
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		Entities: r.Entities(),
		Summary:  r.Summary(),
		Events:   r.Events(),
	}
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = make(map[uint64]*Entity)
	r.events = nil
}

// WriteTable writes the entity table as aligned text columns.
func (r *Recorder) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tLABEL\tOBSERVERS\tUPDATES\tRUNS\tVALUE")
	for _, e := range r.Entities() {
		value := e.Value
		if !e.HasValue {
			value = "-"
		}
		if e.LastError != "" {
			value = "error: " + e.LastError
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			e.ID, e.Kind, e.Label, e.Observers, e.Updates, e.Runs, value)
	}
	return tw.Flush()
}
