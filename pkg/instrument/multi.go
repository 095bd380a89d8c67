package instrument

import "github.com/vango-dev/observe/pkg/observe"

type multiLogger []observe.Logger

// Multi returns a Logger that forwards every event to each of loggers in
// order. Nil and no-op loggers are dropped. With nothing left it returns
// observe.NopLogger, so runtimes keep skipping value formatting.
func Multi(loggers ...observe.Logger) observe.Logger {
	var m multiLogger
	for _, l := range loggers {
		switch l := l.(type) {
		case nil, observe.NopLogger:
			continue
		case multiLogger:
			m = append(m, l...)
		default:
			m = append(m, l)
		}
	}
	switch len(m) {
	case 0:
		return observe.NopLogger{}
	case 1:
		return m[0]
	}
	return m
}

func (m multiLogger) NodeCreated(n observe.NodeInfo) {
	for _, l := range m {
		l.NodeCreated(n)
	}
}

func (m multiLogger) ObserverCountChanged(n observe.NodeInfo, count int) {
	for _, l := range m {
		l.ObserverCountChanged(n, count)
	}
}

func (m multiLogger) ValueChanged(n observe.NodeInfo, c observe.Change) {
	for _, l := range m {
		l.ValueChanged(n, c)
	}
}

func (m multiLogger) DerivedRecomputed(n observe.NodeInfo, c observe.Change) {
	for _, l := range m {
		l.DerivedRecomputed(n, c)
	}
}

func (m multiLogger) DerivedCleared(n observe.NodeInfo) {
	for _, l := range m {
		l.DerivedCleared(n)
	}
}

func (m multiLogger) EffectCreated(n observe.NodeInfo) {
	for _, l := range m {
		l.EffectCreated(n)
	}
}

func (m multiLogger) EffectRan(n observe.NodeInfo) {
	for _, l := range m {
		l.EffectRan(n)
	}
}

func (m multiLogger) EffectFinished(n observe.NodeInfo, err error) {
	for _, l := range m {
		l.EffectFinished(n, err)
	}
}

func (m multiLogger) TransactionBegin(tx observe.TxInfo) {
	for _, l := range m {
		l.TransactionBegin(tx)
	}
}

// TransactionEnd notifies in reverse order so nested resources such as
// spans close in the order they were opened.
func (m multiLogger) TransactionEnd(tx observe.TxInfo) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].TransactionEnd(tx)
	}
}
