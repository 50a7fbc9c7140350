package model

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work associated with the set of agents permitted
// to execute it. The compatibility set is owned by the task: updates
// replace it wholesale, and deleting a task leaves the referenced
// agents untouched.
type Task struct {
	ID                uuid.UUID   `json:"id"`
	Title             string      `json:"title"`
	Description       *string     `json:"description,omitempty"`
	SupportedAgentIDs []uuid.UUID `json:"supported_agent_ids"`
	Deleted           bool        `json:"-"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	DeletedAt         *time.Time  `json:"-"`
}

// SupportsAgent reports whether agentID is in the task's compatibility set.
func (t Task) SupportsAgent(agentID uuid.UUID) bool {
	for _, id := range t.SupportedAgentIDs {
		if id == agentID {
			return true
		}
	}
	return false
}
