// Package errors provides structured, actionable error messages for the
// observe command.
//
// Every error carries a code (e.g., "E101") that maps to a short message
// and a longer explanation in the registry. Errors may point at a location
// in a configuration file, in which case the surrounding lines are shown.
//
// # Error Categories
//
//   - engine: failures surfaced by the reactive engine (cycles, budget, disposal)
//   - scenario: unknown or failing demo scenarios
//   - config: unreadable or invalid configuration files
//   - cli: invalid flags and output failures
//
// # Usage
//
//	err := errors.New("E103").
//	    WithLocation("observe.yaml", 4, 0).
//	    WithSuggestion("maxPassesPerCommit must be positive")
//
//	errors.Print(os.Stderr, err)
//	// ERROR E103: Invalid config value
//	//
//	//   observe.yaml:4
//	//
//	//        2 │ debug:
//	//        3 │   formatLimit: 80
//	//   →    4 │ maxPassesPerCommit: -1
//	//
//	//   Hint: maxPassesPerCommit must be positive
//
// FromError maps the sentinel errors of the observe package to their own
// codes, so engine failures surfacing through a scenario are reported by
// cause.
package errors
