package observe

import (
	"fmt"
	"time"
)

// Kind identifies the kind of a reactive node.
type Kind uint8

const (
	KindValue Kind = iota + 1
	KindSignal
	KindDerived
	KindEffect
	KindAsync
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindSignal:
		return "signal"
	case KindDerived:
		return "derived"
	case KindEffect:
		return "effect"
	case KindAsync:
		return "async"
	default:
		return "unknown"
	}
}

// NodeInfo identifies a node in Logger callbacks.
type NodeInfo struct {
	ID    uint64
	Kind  Kind
	Label string
}

// String returns a compact description such as "derived#12(total)".
func (n NodeInfo) String() string {
	return fmt.Sprintf("%s#%d(%s)", n.Kind, n.ID, n.Label)
}

// Change describes a value replacement or a recompute result. Old and New
// are formatted with FormatValue and are empty when no logger listens.
type Change struct {
	HadValue  bool
	DidChange bool
	Old       string
	New       string
}

// TxInfo describes a transaction. Passes, Runs and Duration are only set
// on TransactionEnd.
type TxInfo struct {
	ID       uint64
	Name     string
	Passes   int
	Runs     int
	Dropped  int
	Duration time.Duration
}

// Logger receives lifecycle notifications from a Runtime. All methods are
// called synchronously on the engine goroutine and must not read or write
// nodes.
type Logger interface {
	NodeCreated(n NodeInfo)
	ObserverCountChanged(n NodeInfo, count int)
	ValueChanged(n NodeInfo, c Change)
	DerivedRecomputed(n NodeInfo, c Change)
	DerivedCleared(n NodeInfo)
	EffectCreated(n NodeInfo)
	EffectRan(n NodeInfo)
	EffectFinished(n NodeInfo, err error)
	TransactionBegin(tx TxInfo)
	TransactionEnd(tx TxInfo)
}

// NopLogger discards every notification. It is the default Logger.
type NopLogger struct{}

func (NopLogger) NodeCreated(NodeInfo)               {}
func (NopLogger) ObserverCountChanged(NodeInfo, int) {}
func (NopLogger) ValueChanged(NodeInfo, Change)      {}
func (NopLogger) DerivedRecomputed(NodeInfo, Change) {}
func (NopLogger) DerivedCleared(NodeInfo)            {}
func (NopLogger) EffectCreated(NodeInfo)             {}
func (NopLogger) EffectRan(NodeInfo)                 {}
func (NopLogger) EffectFinished(NodeInfo, error)     {}
func (NopLogger) TransactionBegin(TxInfo)            {}
func (NopLogger) TransactionEnd(TxInfo)              {}
