package testutil

// ConstantIDs returns the same id every time.
//
// Useful where runs must be named but the name is irrelevant, such as
// concurrent runs writing to separate in-memory stores.
//
// Thread-safety: stateless and safe for concurrent use.
type ConstantIDs struct {
	id string
}

// NewConstantIDs creates a generator for id. An empty id becomes
// "test-run".
func NewConstantIDs(id string) *ConstantIDs {
	if id == "" {
		id = "test-run"
	}
	return &ConstantIDs{id: id}
}

// Generate returns the fixed id.
func (g *ConstantIDs) Generate() string { return g.id }
