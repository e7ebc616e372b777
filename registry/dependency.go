package registry

// Dependency resolution over foreign-key edges. Only foreign keys whose
// target is itself a registered type participate: unregistered or external
// targets cannot be ordered, so they are dropped from the graph.

// GetDependencyGraph returns, for each registered type, the display names of
// the other registered types it references through foreign-key fields.
// Duplicate edges are collapsed; dependencies keep field declaration order.
func (r *Registry) GetDependencyGraph() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := make(map[string][]string, len(r.types))
	for _, key := range r.order {
		rt := r.types[key]
		seen := make(map[string]bool)
		deps := []string{}
		for _, rel := range rt.Relationships {
			if rel.Kind != RelationForeignKey.String() {
				continue
			}
			target, ok := r.types[normalizeName(rel.TargetType)]
			if !ok || target == rt {
				continue
			}
			if !seen[target.Name] {
				seen[target.Name] = true
				deps = append(deps, target.Name)
			}
		}
		graph[rt.Name] = deps
	}
	return graph
}

// GetInitializationOrder returns every registered type in an order where each
// foreign-key dependency appears strictly before the types that depend on it.
// Ties among mutually independent types are broken by registration order, so
// the result is deterministic. Returns a CircularDependencyError naming every
// member of the first cycle found.
func (r *Registry) GetInitializationOrder() ([]string, error) {
	graph := r.GetDependencyGraph()
	return SortDependencies(r.Names(), graph)
}

// visit states for the iterative depth-first traversal
const (
	stateUnvisited = iota
	stateInProgress
	stateDone
)

// SortDependencies performs a deterministic topological sort. nodes fixes the
// tie-breaking order; deps maps each node to the nodes it depends on, which
// must be emitted first. Edges to names absent from nodes are ignored.
//
// The traversal is an iterative depth-first walk with an explicit stack and
// three states per node, so traversal order is reproducible and stack depth
// is bounded regardless of graph shape. Meeting an in-progress node signals
// a cycle.
func SortDependencies(nodes []string, deps map[string][]string) ([]string, error) {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n] = true
	}

	state := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))

	type frame struct {
		name string
		next int
	}

	for _, root := range nodes {
		if state[root] != stateUnvisited {
			continue
		}

		stack := []frame{{name: root}}
		path := []string{root}
		state[root] = stateInProgress

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := deps[top.name]

			if top.next < len(edges) {
				dep := edges[top.next]
				top.next++
				if !known[dep] {
					continue
				}
				switch state[dep] {
				case stateUnvisited:
					state[dep] = stateInProgress
					stack = append(stack, frame{name: dep})
					path = append(path, dep)
				case stateInProgress:
					// The path from the dependency's first occurrence to the
					// top of the stack is the cycle.
					start := 0
					for i, n := range path {
						if n == dep {
							start = i
							break
						}
					}
					cycle := make([]string, len(path)-start)
					copy(cycle, path[start:])
					return nil, &CircularDependencyError{Cycle: cycle}
				}
				continue
			}

			// All dependencies emitted; emit the node itself.
			order = append(order, top.name)
			state[top.name] = stateDone
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
		}
	}

	return order, nil
}
