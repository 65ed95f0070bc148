package agent

import (
	"math/rand"
	"sync"
)

// Selector picks the persona identity a feedback agent speaks as. The
// strategy is injected at construction so tests can force determinism.
type Selector interface {
	Select() PersonaType
}

// FixedPersona always selects the same persona.
type FixedPersona PersonaType

func (f FixedPersona) Select() PersonaType { return PersonaType(f) }

// RandomPersona selects uniformly at random from the full enumeration.
type RandomPersona struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPersona creates a seeded random selector.
func NewRandomPersona(seed int64) *RandomPersona {
	return &RandomPersona{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomPersona) Select() PersonaType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return AllPersonaTypes[r.rng.Intn(len(AllPersonaTypes))]
}

// RoundRobinPersona cycles through the enumeration in declaration order.
type RoundRobinPersona struct {
	mu   sync.Mutex
	next int
}

func (r *RoundRobinPersona) Select() PersonaType {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := AllPersonaTypes[r.next%len(AllPersonaTypes)]
	r.next++
	return p
}
