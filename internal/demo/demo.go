// Package demo contains runnable scenarios that drive the observe engine.
// The CLI runs them by name and the tests check their output.
package demo

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/vango-dev/observe/internal/errors"
	"github.com/vango-dev/observe/pkg/observe"
)

// Env is what a scenario runs against.
type Env struct {
	// Runtime hosts the scenario's nodes. Nil means a fresh runtime.
	Runtime *observe.Runtime

	// Out receives the scenario's output.
	Out io.Writer

	// Steps is the number of changes the scenario applies. Zero means the
	// scenario's default.
	Steps int
}

func (e *Env) printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format+"\n", args...)
}

func (e *Env) in() observe.Option {
	return observe.InRuntime(e.Runtime)
}

// Scenario is a named program over the engine.
type Scenario struct {
	Name        string
	Description string

	// Steps is the default number of steps.
	Steps int

	run func(ctx context.Context, env *Env, s *observe.Store) error
}

// Run executes the scenario. Every node it creates is disposed before Run
// returns.
func (sc Scenario) Run(ctx context.Context, env Env) error {
	if env.Runtime == nil {
		env.Runtime = observe.NewRuntime()
	}
	if env.Out == nil {
		env.Out = io.Discard
	}
	if env.Steps <= 0 {
		env.Steps = sc.Steps
	}

	store := observe.NewStore()
	err := sc.run(ctx, &env, store)
	if cerr := store.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.FromError(err, "E002").
			WithDetail(fmt.Sprintf("Scenario %q failed.", sc.Name))
	}
	return nil
}

var scenarios = []Scenario{
	{Name: "basic", Description: "a derived value printed by an autorun while its input counts up", Steps: 5, run: runBasic},
	{Name: "conditional-read", Description: "an autorun that reads a derived value only some of the time", Steps: 12, run: runConditionalRead},
	{Name: "contacts", Description: "objects holding values and a derived full name, edited in transactions", Steps: 3, run: runContacts},
	{Name: "double", Description: "several writes in one transaction reach an effect once", Steps: 2, run: runDouble},
	{Name: "diamond", Description: "two derived values sharing an input feed a third without glitches", Steps: 3, run: runDiamond},
	{Name: "parity", Description: "writes that leave a derived value unchanged do not run its effect", Steps: 4, run: runParity},
	{Name: "batching", Description: "an autorun and an update callback over two values set together", Steps: 3, run: runBatching},
	{Name: "async", Description: "a value computed by background jobs, cancelled when its input changes", Steps: 3, run: runAsync},
	{Name: "cycle", Description: "a derived value that depends on itself while a flag is set", Steps: 2, run: runCycle},
	{Name: "feedback", Description: "an effect that keeps writing its own input until the commit budget stops it", Steps: 1, run: runFeedback},
}

// All returns every scenario, sorted by name.
func All() []Scenario {
	out := slices.Clone(scenarios)
	slices.SortFunc(out, func(a, b Scenario) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Names returns the names of all scenarios, sorted.
func Names() []string {
	var names []string
	for _, sc := range All() {
		names = append(names, sc.Name)
	}
	return names
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, error) {
	for _, sc := range scenarios {
		if sc.Name == name {
			return sc, nil
		}
	}
	return Scenario{}, errors.New("E001").
		WithDetail(fmt.Sprintf("No scenario named %q.", name)).
		WithSuggestion("Available scenarios: " + strings.Join(Names(), ", "))
}

// Run looks up a scenario by name and runs it.
func Run(ctx context.Context, name string, env Env) error {
	sc, err := Lookup(name)
	if err != nil {
		return err
	}
	return sc.Run(ctx, env)
}
