package entity

import "time"

// MealType enumerates the meals a voucher can entitle its holder to.
type MealType string

const (
	MealBreakfast MealType = "BREAKFAST"
	MealLunch     MealType = "LUNCH"
	MealSnack     MealType = "SNACK"
)

// MealTypes returns the full enumeration in issuance order.
func MealTypes() []MealType {
	return []MealType{MealBreakfast, MealLunch, MealSnack}
}

// Valid reports whether m is a known meal type.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealSnack:
		return true
	}
	return false
}

// Voucher is one single-use meal entitlement. The owning attendee's identity
// is captured as a value copy at issuance time: the external roster is not
// owned by this system and its rows can change or vanish, so the voucher must
// stay self-describing. Used flips false to true exactly once; RedeemedAt is
// set if and only if Used is true.
type Voucher struct {
	ID                 int64      `json:"id"`
	AttendeeName       string     `json:"attendee_name"`
	AttendeeExternalID string     `json:"attendee_external_id"`
	AttendeeEmail      string     `json:"attendee_email"`
	MealType           MealType   `json:"meal_type"`
	Token              Token      `json:"token"`
	Used               bool       `json:"used"`
	CreatedAt          time.Time  `json:"created_at"`
	RedeemedAt         *time.Time `json:"redeemed_at,omitempty"`
}
