// Package observe is a fine-grained reactive dependency-tracking engine.
//
// Values are mutable leaf cells. Derived nodes compute cached values from
// other nodes and recompute lazily. Effects run side effects whenever a
// node they read changes. Dependencies are recorded at runtime: every read
// through the Reader handed to a computation makes the computation depend
// on the node read.
//
// # Core Types
//
// Value[T] is a mutable leaf:
//
//	count := observe.NewValue("count", 0)
//	count.Set(5, nil)
//	count.Update(func(n int) int { return n + 1 }, nil)
//
// Derived[T] is a cached computation:
//
//	doubled := observe.Derive("doubled", func(r *observe.Reader) int {
//	    return count.Read(r) * 2
//	})
//	v, err := doubled.Get() // recomputes only if count changed
//
// Effect runs a body on creation and after every change it depends on:
//
//	e := observe.Autorun("print", func(r *observe.Reader) error {
//	    v, err := doubled.Read(r)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println("doubled is", v)
//	    return nil
//	})
//	defer e.Dispose()
//
// # Transactions
//
// Writes are grouped in transactions. Effects run when the outermost
// transaction ends, once per change batch, and always see the final state:
//
//	observe.Tx(func(tx *observe.Transaction) {
//	    first.Set("Ada", tx)
//	    last.Set("Lovelace", tx)
//	}) // effects reading both run once
//
// A write with a nil transaction joins the open one, or commits on its own.
//
// Propagation has two phases. A write marks every node downstream as
// possibly stale and queues the effects it reaches. When the transaction
// ends, each queued effect asks its dependencies, in the order it read
// them, whether they really changed; a Derived that finds all of its own
// dependencies unchanged becomes current without recomputing. An effect
// whose dependencies all turned out unchanged does not run.
//
// # Threading
//
// A Runtime and its nodes are single-threaded. Background work reports
// back through Runtime.Post, which is safe from any goroutine, and is
// applied by Runtime.Flush on the engine goroutine. Async builds on this.
//
// # Instrumentation
//
// A Logger set with WithLogger receives node, effect and transaction
// lifecycle events. The instrument package provides slog, Prometheus,
// OpenTelemetry and in-memory implementations.
package observe
