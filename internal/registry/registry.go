// Package registry manages the eternal hierarchy: seventy-two archetypal
// agents plus the unifying will.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
)

const (
	// ArchetypeCount is the number of archetypal agents below the unifier.
	ArchetypeCount = 72

	// UnifierName and UnifierRole identify the final agent in the
	// hierarchy, created with the highest priority.
	UnifierName     = "Unifying_Will"
	UnifierRole     = "Sovereign_Unifier"
	UnifierPriority = 100

	defaultPriority = 50
)

// EventBuilt is published after the hierarchy has been populated.
const EventBuilt observability.EventType = "registry.built"

// Agent statuses reported by Process.
const (
	StatusOK       = "ok"
	StatusInactive = "inactive"
	StatusError    = "error"
)

// ProcessResult is the outcome of one agent processing pass.
type ProcessResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Role   string `json:"role,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ProcessFunc overrides an agent's default processing behavior.
type ProcessFunc func(a *Agent) (ProcessResult, error)

// Agent is a single eternal.
type Agent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Priority int    `json:"priority"`
	Active   bool   `json:"active"`

	process ProcessFunc
}

// Process runs the agent's logic: the installed ProcessFunc when present,
// otherwise a no-op telemetry result.
func (a *Agent) Process() ProcessResult {
	if !a.Active {
		return ProcessResult{ID: a.ID, Status: StatusInactive}
	}
	if a.process != nil {
		res, err := a.process(a)
		if err != nil {
			return ProcessResult{ID: a.ID, Status: StatusError, Error: err.Error()}
		}
		return res
	}
	return ProcessResult{ID: a.ID, Status: StatusOK, Role: a.Role}
}

// AgentView is the serializable snapshot row.
type AgentView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// Registry creates and tracks the eternals. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents []*Agent
	obs    observability.Observer
}

// Option configures the registry.
type Option func(*Registry)

// WithObserver installs the event sink. Defaults to a no-op.
func WithObserver(obs observability.Observer) Option {
	return func(r *Registry) { r.obs = obs }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{obs: observability.NoOp{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateAgent registers a new active agent and returns it.
func (r *Registry) CreateAgent(name, role string, priority int, fn ProcessFunc) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := &Agent{
		ID:       uuid.NewString(),
		Name:     name,
		Role:     role,
		Priority: priority,
		Active:   true,
		process:  fn,
	}
	r.agents = append(r.agents, a)
	return a
}

// Build populates the hierarchy up to seventy-two archetypes and then
// appends the unifying will. Building an already-populated registry only
// tops it up; the unifier is never duplicated.
func (r *Registry) Build() {
	for r.Len() < ArchetypeCount {
		name := fmt.Sprintf("Archetype_%d", r.Len()+1)
		r.CreateAgent(name, "Archetype", defaultPriority, nil)
	}
	if !r.hasUnifier() {
		r.CreateAgent(UnifierName, UnifierRole, UnifierPriority, nil)
	}

	r.obs.Publish(context.Background(), observability.Event{
		Type:   EventBuilt,
		Level:  observability.LevelInfo,
		At:     time.Now(),
		Source: "registry",
		Data:   map[string]any{"count": r.Len()},
	})
}

func (r *Registry) hasUnifier() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if a.Name == UnifierName {
			return true
		}
	}
	return false
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Snapshot lists the agents in creation order.
func (r *Registry) Snapshot() []AgentView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentView, len(r.agents))
	for i, a := range r.agents {
		out[i] = AgentView{ID: a.ID, Name: a.Name, Role: a.Role, Active: a.Active}
	}
	return out
}

// Agents returns the live agent list in creation order.
func (r *Registry) Agents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Agent(nil), r.agents...)
}
