package observe

import "time"

// Transaction batches writes. Writes inside it take effect immediately,
// but effects only run when the outermost transaction ends, each at most
// once per pass and after all writes of the batch are in place.
//
// Within a pass effects run in enqueue order: an effect is enqueued by the
// first write of the transaction that reaches it, not by its creation
// order.
//
// Transactions nest: Begin while one is open returns the open transaction,
// and only the End matching the outermost Begin commits.
type Transaction struct {
	id      uint64
	name    string
	rt      *Runtime
	depth   int
	started time.Time

	// queue holds effects scheduled for the next pass, in enqueue order.
	queue []*Effect

	committing bool
	done       bool
	passes     int
	runs       int
	dropped    int
}

// Begin opens a transaction, or joins the open one.
func (rt *Runtime) Begin(name string) *Transaction {
	if tx := rt.current; tx != nil {
		tx.depth++
		return tx
	}
	tx := &Transaction{
		id:      nextID(),
		name:    name,
		rt:      rt,
		depth:   1,
		started: time.Now(),
	}
	rt.current = tx
	rt.logger.TransactionBegin(tx.Info())
	return tx
}

// End closes one level of the transaction. Closing the outermost level
// runs the scheduled effects. End on a committed transaction is a no-op.
func (tx *Transaction) End() {
	if tx.done {
		return
	}
	if tx.depth > 0 {
		tx.depth--
	}
	// While committing, the commit loop drains whatever nested
	// transactions schedule.
	if tx.depth > 0 || tx.committing {
		return
	}
	tx.commit()
}

// Tx runs fn inside a transaction. Panics in fn still end the
// transaction before propagating.
//
// Example:
//
//	rt.Tx(func(tx *observe.Transaction) {
//	    first.Set("Ada", tx)
//	    last.Set("Lovelace", tx)
//	})
func (rt *Runtime) Tx(fn func(tx *Transaction)) {
	rt.TxNamed("", fn)
}

// TxNamed runs fn as a named transaction. The name is reported to the
// Logger.
func (rt *Runtime) TxNamed(name string, fn func(tx *Transaction)) {
	tx := rt.Begin(name)
	defer tx.End()
	fn(tx)
}

// Tx runs fn inside a transaction of the default runtime.
func Tx(fn func(tx *Transaction)) {
	defaultRuntime.Tx(fn)
}

// TxNamed runs fn inside a named transaction of the default runtime.
func TxNamed(name string, fn func(tx *Transaction)) {
	defaultRuntime.TxNamed(name, fn)
}

// Subtransaction runs fn as part of tx. A nil or committed tx starts a new
// transaction in the default runtime instead.
func Subtransaction(tx *Transaction, fn func(tx *Transaction)) {
	if tx == nil || tx.done {
		rt := defaultRuntime
		if tx != nil {
			rt = tx.rt
		}
		rt.Tx(fn)
		return
	}
	tx.depth++
	defer tx.End()
	fn(tx)
}

// ID returns the transaction's unique identifier.
func (tx *Transaction) ID() uint64 { return tx.id }

// Name returns the name given to Begin or TxNamed.
func (tx *Transaction) Name() string { return tx.name }

// Runtime returns the runtime the transaction belongs to.
func (tx *Transaction) Runtime() *Runtime { return tx.rt }

// Done reports whether the transaction committed.
func (tx *Transaction) Done() bool { return tx.done }

// Info describes the transaction.
func (tx *Transaction) Info() TxInfo {
	info := TxInfo{
		ID:      tx.id,
		Name:    tx.name,
		Passes:  tx.passes,
		Runs:    tx.runs,
		Dropped: tx.dropped,
	}
	if tx.done {
		info.Duration = time.Since(tx.started)
	}
	return info
}

// commit runs scheduled effects pass by pass until the queue stays empty
// or the budget is spent. Effects scheduled during a pass run in the next.
func (tx *Transaction) commit() {
	rt := tx.rt
	tx.committing = true
	defer func() {
		tx.committing = false
		tx.done = true
		if rt.current == tx {
			rt.current = nil
		}
		rt.logger.TransactionEnd(tx.Info())
	}()

	for len(tx.queue) > 0 {
		if err := rt.budget.checkPass(tx); err != nil {
			tx.abandon(tx.queue, err)
			return
		}
		tx.passes++

		batch := tx.queue
		tx.queue = nil
		for i, e := range batch {
			e.queued = false
			if e.disposed || !e.needsRun() {
				continue
			}
			if err := rt.budget.checkRun(tx); err != nil {
				tx.abandon(append(batch[i:], tx.queue...), err)
				return
			}
			tx.runs++
			e.run()
		}
	}
}

// abandon drops the remaining queue. The dropped effects run on the next
// change of any of their dependencies, without checking versions.
func (tx *Transaction) abandon(rest []*Effect, err error) {
	n := 0
	for _, e := range rest {
		e.queued = false
		if !e.disposed {
			e.forced = true
			n++
		}
	}
	tx.queue = nil
	tx.dropped += n

	rt := tx.rt
	rt.budget.exceeded++
	rt.budget.dropped += n
	if rt.debug.LogBudget {
		rt.log.Warn("commit budget exceeded",
			"tx", tx.name,
			"passes", tx.passes,
			"runs", tx.runs,
			"dropped", n,
			"error", err,
		)
	}
}
