package models

import "time"

// ClassRoster is the list of known class names.
type ClassRoster struct {
	Classes  []string       `json:"classes" validate:"dive,required"`
	Metadata RosterMetadata `json:"metadata"`
}

// RosterMetadata describes the roster.
type RosterMetadata struct {
	TotalClasses int       `json:"total_classes"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Refresh recomputes the metadata after a mutation.
func (r *ClassRoster) Refresh(now time.Time) {
	if r.Classes == nil {
		r.Classes = []string{}
	}
	r.Metadata.TotalClasses = len(r.Classes)
	r.Metadata.LastUpdated = now
}
