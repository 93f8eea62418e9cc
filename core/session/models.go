package session

import (
	"time"

	"github.com/trezcool/bursary/core"
)

// Session is an academic term. Exactly one Session is active system-wide.
type Session struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate core.Date `json:"start_date" db:"start_date"`
	EndDate   core.Date `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	Name      string    `json:"name" validate:"required"`
	StartDate core.Date `json:"start_date" validate:"required"`
	EndDate   core.Date `json:"end_date" validate:"required"`
}

func (ns *NewSession) Clean() {
	ns.Name = core.CleanString(ns.Name)
}
