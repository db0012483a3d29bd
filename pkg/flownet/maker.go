package flownet

// Maker constructs and owns the ordered collection of nodes of one kind.
// Parameters handed to a maker are read-only after construction; the
// nodes reference them, they do not copy them.
//
// Indices handed out by Node are stable for the lifetime of the maker.
type Maker interface {
	// Kind returns the kind name shared by all nodes of this maker.
	Kind() string

	// IDs returns the user-assigned ids in construction order.
	IDs() []string

	// Len returns the number of nodes.
	Len() int

	// Node returns the node at the given maker-local index.
	Node(i int) Node

	// BudgetPolicy returns the maker-level policy override, if set.
	// When unset, nodes inherit the graph-level policy at Build time.
	BudgetPolicy() (Policy, bool)
}

// makerBase carries what every maker shares: kind name, id list, and the
// optional budget-policy override.
type makerBase struct {
	kind      string
	ids       []string
	policy    Policy
	policySet bool

	// iterations is only meaningful to makers with sub-step dynamics
	// (see WithIterations); others ignore it.
	iterations int
}

func (m *makerBase) Kind() string { return m.kind }

func (m *makerBase) IDs() []string {
	ids := make([]string, len(m.ids))
	copy(ids, m.ids)
	return ids
}

func (m *makerBase) Len() int { return len(m.ids) }

func (m *makerBase) BudgetPolicy() (Policy, bool) {
	return m.policy, m.policySet
}

// MakerOption configures a maker at construction time.
type MakerOption func(*makerBase)

// WithBudgetPolicy sets a maker-level budget policy that replaces the
// graph default for this maker's nodes.
func WithBudgetPolicy(p Policy) MakerOption {
	return func(m *makerBase) {
		m.policy = p
		m.policySet = true
	}
}
