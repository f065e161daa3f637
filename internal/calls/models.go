package calls

import "time"

// Call is one analysed sales-call transcript.
//
// OwnerID, Transcript and CreatedAt are immutable. The four analysis fields are always present
// (possibly empty) and individually editable.
type Call struct {
	ID         string `json:"id" db:"id"`
	OwnerID    string `json:"user_id" db:"owner_id"`
	Title      string `json:"title" db:"title"`
	Transcript string `json:"transcript" db:"transcript"`

	Summary     string `json:"summary" db:"summary"`
	KeyInsights string `json:"key_insights" db:"key_insights"`
	PainPoints  string `json:"pain_points" db:"pain_points"`
	NextSteps   string `json:"next_steps" db:"next_steps"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Summary is the list projection of a Call.
type Summary struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Summary   string    `json:"summary" db:"summary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Analysis is the structured output of the analysis collaborator.
type Analysis struct {
	Summary     string `json:"summary"`
	KeyInsights string `json:"key_insights"`
	PainPoints  string `json:"pain_points"`
	NextSteps   string `json:"next_steps"`
}

// Patch carries one optional slot per updatable field. Nil slots are left untouched.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	KeyInsights *string `json:"key_insights,omitempty"`
	PainPoints  *string `json:"pain_points,omitempty"`
	NextSteps   *string `json:"next_steps,omitempty"`
}

// IsEmpty reports whether no slot is set.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Summary == nil && p.KeyInsights == nil && p.PainPoints == nil && p.NextSteps == nil
}

// apply copies the set slots onto c.
func (p Patch) apply(c *Call) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Summary != nil {
		c.Summary = *p.Summary
	}
	if p.KeyInsights != nil {
		c.KeyInsights = *p.KeyInsights
	}
	if p.PainPoints != nil {
		c.PainPoints = *p.PainPoints
	}
	if p.NextSteps != nil {
		c.NextSteps = *p.NextSteps
	}
}

// notBefore keeps updated_at monotonic when the writer's clock is behind the stored value.
func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

// Activity is the content-free view of a call used for usage reporting.
type Activity struct {
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}
