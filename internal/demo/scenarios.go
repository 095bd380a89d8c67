package demo

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/vango-dev/observe/pkg/observe"
)

func runBasic(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	v := observe.NewValue("counter", 0, in)
	half := observe.Keep(s, observe.Derive("half", func(r *observe.Reader) int {
		return v.Read(r) / 2
	}, in))
	observe.Keep(s, observe.Autorun("print", func(r *observe.Reader) error {
		n, err := half.Read(r)
		if err != nil {
			return err
		}
		env.printf("derived %d", n)
		return nil
	}, in))

	for range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		v.Set(v.Get()+1, nil)
	}
	return nil
}

func runConditionalRead(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	v := observe.NewValue("counter", 0, in)
	half := observe.Keep(s, observe.Derive("half", func(r *observe.Reader) int {
		return v.Read(r) / 2
	}, in))
	observe.Keep(s, observe.Autorun("print", func(r *observe.Reader) error {
		n := v.Read(r)
		if (n/5)%2 != 0 {
			env.printf("v=%d", n)
			return nil
		}
		h, err := half.Read(r)
		if err != nil {
			return err
		}
		env.printf("v=%d half=%d", n, h)
		return nil
	}, in))

	for range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		v.Set(v.Get()+1, nil)
	}
	return nil
}

type contact struct {
	first *observe.Value[string]
	last  *observe.Value[string]
	full  *observe.Derived[string]
}

func newContact(s *observe.Store, in observe.Option, first, last string) *contact {
	c := &contact{
		first: observe.NewValue("first", first, in),
		last:  observe.NewValue("last", last, in),
	}
	c.full = observe.Keep(s, observe.Derive("full", func(r *observe.Reader) string {
		return c.first.Read(r) + " " + c.last.Read(r)
	}, in))
	return c
}

func runContacts(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	contacts := []*contact{
		newContact(s, in, "Jane", "Doe"),
		newContact(s, in, "Max", "Mustermann"),
	}
	observe.Keep(s, observe.Autorun("contacts", func(r *observe.Reader) error {
		names := make([]string, 0, len(contacts))
		for _, c := range contacts {
			name, err := c.full.Read(r)
			if err != nil {
				return err
			}
			names = append(names, name)
		}
		env.printf("%s", strings.Join(names, ", "))
		return nil
	}, in))

	for i := range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Runtime.TxNamed("rename", func(tx *observe.Transaction) {
			contacts[0].first.Set(fmt.Sprintf("John %d", i), tx)
		})
	}
	return nil
}

func runDouble(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	l1 := observe.NewValue("L1", 2, in)
	d1 := observe.Keep(s, observe.Derive("D1", func(r *observe.Reader) int {
		return l1.Read(r) * 2
	}, in))
	observe.Keep(s, observe.Autorun("E", func(r *observe.Reader) error {
		n, err := d1.Read(r)
		if err != nil {
			return err
		}
		env.printf("D1=%d", n)
		return nil
	}, in))

	for i := range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Runtime.Tx(func(tx *observe.Transaction) {
			// The intermediate value is never observed.
			l1.Set(-1, tx)
			l1.Set(3+i, tx)
		})
	}
	return nil
}

func runDiamond(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	a := observe.NewValue("a", 1, in)
	b := observe.Keep(s, observe.Derive("b", func(r *observe.Reader) int {
		return a.Read(r) + 1
	}, in))
	c := observe.Keep(s, observe.Derive("c", func(r *observe.Reader) int {
		return a.Read(r) * 2
	}, in))
	recomputes := 0
	sum := observe.Keep(s, observe.DeriveErr("sum", func(r *observe.Reader) (int, error) {
		recomputes++
		x, err := b.Read(r)
		if err != nil {
			return 0, err
		}
		y, err := c.Read(r)
		if err != nil {
			return 0, err
		}
		return x + y, nil
	}, in))
	observe.Keep(s, observe.Autorun("print", func(r *observe.Reader) error {
		n, err := sum.Read(r)
		if err != nil {
			return err
		}
		env.printf("a=%d sum=%d recomputes=%d", a.Get(), n, recomputes)
		return nil
	}, in))

	for range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.Update(func(n int) int { return n + 1 }, nil)
	}
	return nil
}

func runParity(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	l1 := observe.NewValue("L1", 1, in)
	even := observe.Keep(s, observe.Derive("even", func(r *observe.Reader) bool {
		return l1.Read(r)%2 == 0
	}, in))
	observe.Keep(s, observe.Autorun("print", func(r *observe.Reader) error {
		b, err := even.Read(r)
		if err != nil {
			return err
		}
		env.printf("even=%t", b)
		return nil
	}, in))

	for i := range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Runtime.Tx(func(tx *observe.Transaction) {
			if i%2 == 0 {
				l1.Set(l1.Get()+2, tx)
				l1.Set(l1.Get()+2, tx)
				return
			}
			l1.Set(l1.Get()+1, tx)
		})
		env.printf("L1=%d", l1.Get())
	}
	return nil
}

func runBatching(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	first := observe.NewValue("first", "Ada", in)
	last := observe.NewValue("last", "Lovelace", in)
	observe.Keep(s, observe.Autorun("greet", func(r *observe.Reader) error {
		env.printf("hello %s %s", first.Read(r), last.Read(r))
		return nil
	}, in))
	updates := 0
	observe.Keep(s, observe.OnUpdate("count",
		func(r *observe.Reader) error {
			first.Read(r)
			last.Read(r)
			return nil
		},
		func() {
			updates++
			env.printf("update #%d", updates)
		}, in))

	for i := range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Runtime.TxNamed("rename", func(tx *observe.Transaction) {
			first.Set(fmt.Sprintf("First%d", i), tx)
			last.Set(fmt.Sprintf("Last%d", i), tx)
		})
	}
	return nil
}

func runAsync(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	n := observe.NewValue("n", 1, in)
	square := observe.Keep(s, observe.DeriveAsync(ctx, "square", func(r *observe.Reader) (observe.Job[int], error) {
		x := n.Read(r)
		return func(ctx context.Context) (int, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			return x * x, nil
		}, nil
	}, in))
	observe.Keep(s, observe.Autorun("print", func(r *observe.Reader) error {
		res := square.Read(r)
		env.printf("%s %d", res.Status, res.Value)
		return nil
	}, in))

	if _, err := env.Runtime.Await(ctx); err != nil {
		return err
	}
	for i := range env.Steps {
		n.Set(i+2, nil)
		if _, err := env.Runtime.Await(ctx); err != nil {
			return err
		}
	}
	return nil
}

func runCycle(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	loop := observe.NewValue("loop", false, in)
	var b *observe.Derived[int]
	a := observe.Keep(s, observe.DeriveErr("a", func(r *observe.Reader) (int, error) {
		if loop.Read(r) {
			return b.Read(r)
		}
		return 1, nil
	}, in))
	b = observe.Keep(s, observe.DeriveErr("b", func(r *observe.Reader) (int, error) {
		x, err := a.Read(r)
		return x + 1, err
	}, in))
	observe.Keep(s, observe.Autorun("print", func(r *observe.Reader) error {
		x, err := b.Read(r)
		switch {
		case stderrors.Is(err, observe.ErrCycle):
			env.printf("b: cycle detected")
		case err != nil:
			return err
		default:
			env.printf("b=%d", x)
		}
		return nil
	}, in))

	for range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		loop.Set(!loop.Get(), nil)
	}
	return nil
}

func runFeedback(ctx context.Context, env *Env, s *observe.Store) error {
	in := env.in()
	n := observe.NewValue("n", 0, in)
	before := env.Runtime.BudgetStats().Exceeded
	observe.Keep(s, observe.Autorun("chase", func(r *observe.Reader) error {
		n.Set(n.Read(r)+1, nil)
		return nil
	}, in))
	env.printf("budget exceeded %d time(s)", env.Runtime.BudgetStats().Exceeded-before)

	for range env.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.Set(0, nil)
		env.printf("budget exceeded %d time(s)", env.Runtime.BudgetStats().Exceeded-before)
	}
	return nil
}
