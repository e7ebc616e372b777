package registry

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed type registration: unreadable field
// or relationship metadata that registration refuses to accept.
type ConfigurationError struct {
	TypeName string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.TypeName == "" {
		return fmt.Sprintf("invalid type configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for type %s: %s", e.TypeName, e.Reason)
}

// NotRegisteredError reports an operation that needs a type which was never
// registered, such as requesting a collection for an unknown name.
type NotRegisteredError struct {
	TypeName string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("type %s is not registered", e.TypeName)
}

// CircularDependencyError reports a cycle in the foreign-key dependency
// graph. It carries every member of the offending cycle; no initialization
// order exists that satisfies a cyclic graph, so this is always fatal.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return "circular dependency detected"
	}
	// Close the cycle for readability: A -> B -> A
	return fmt.Sprintf("circular dependency detected: %s -> %s",
		strings.Join(e.Cycle, " -> "), e.Cycle[0])
}
