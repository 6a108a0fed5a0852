package entity

import "time"

// Provenance identifies which backing store an attendee identity came from.
type Provenance string

const (
	// ProvenanceLocal marks attendees owned and mutated by this system.
	ProvenanceLocal Provenance = "local"
	// ProvenanceExternal marks attendees mirrored read-only from the
	// externally managed visitor roster.
	ProvenanceExternal Provenance = "external"
)

// AttendeeIdentity is the uniform identity shape the voucher core operates
// on, regardless of which store the attendee record lives in.
type AttendeeIdentity struct {
	Name       string     `json:"name"`
	ExternalID string     `json:"external_id"`
	Email      string     `json:"email"`
	Active     bool       `json:"active"`
	Provenance Provenance `json:"provenance"`
}

// Attendee is a locally owned attendee record. ExternalID and Email are each
// unique across local attendees.
type Attendee struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ExternalID   string    `json:"external_id"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Identity returns the uniform identity view of a local attendee.
func (a *Attendee) Identity() AttendeeIdentity {
	return AttendeeIdentity{
		Name:       a.Name,
		ExternalID: a.ExternalID,
		Email:      a.Email,
		Active:     a.Active,
		Provenance: ProvenanceLocal,
	}
}
