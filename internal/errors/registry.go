package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine and Scenario Errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryScenario,
		Message:  "Unknown scenario",
		Detail:   "No scenario with this name is registered. Run 'observe list' to see the available scenarios.",
	},
	"E002": {
		Category: CategoryScenario,
		Message:  "Scenario failed",
		Detail:   "The scenario returned an error while driving the reactive graph.",
	},
	"E003": {
		Category: CategoryEngine,
		Message:  "Cyclic dependency",
		Detail:   "A derived value was read while it was recomputing, which means its computation depends on itself.",
	},
	"E004": {
		Category: CategoryEngine,
		Message:  "Commit budget exceeded",
		Detail:   "Effects kept rescheduling each other by writing to values they depend on. The remaining effect runs were dropped.",
	},
	"E005": {
		Category: CategoryEngine,
		Message:  "Reader used after its computation finished",
		Detail:   "A Reader was retained and used after the derived computation or effect body it was handed to returned.",
	},
	"E006": {
		Category: CategoryEngine,
		Message:  "Node disposed",
		Detail:   "A derived or async node was read after it was disposed.",
	},
	"E007": {
		Category: CategoryEngine,
		Message:  "Panic in reactive computation",
		Detail:   "A derived computation, comparer or effect body panicked. The panic was recovered and turned into an error.",
	},

	// ============================================
	// Configuration Errors (E100-E139)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "The configuration file given with --config does not exist.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid JSON config",
		Detail:   "The observe.json file contains invalid JSON.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid YAML config",
		Detail:   "The observe.yaml file contains invalid YAML.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range or not one of the allowed values.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Unsupported config format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command-line flag has a value that cannot be used.",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Output failed",
		Detail:   "Writing command output failed.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
