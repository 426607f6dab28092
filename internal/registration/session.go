// Package registration holds the two-step registration funnel: the step
// machine, the per-event-type form schemas and their localized copy.
package registration

import (
	"maps"
)

// Step is the user's position in the funnel.
type Step string

const (
	StepDataEntry      Step = "data_entry"
	StepCheckoutReview Step = "checkout_review"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return s == StepDataEntry || s == StepCheckoutReview
}

// Session is one user's registration attempt for one event. It is owned by a
// single request at a time and discarded when the user navigates away.
type Session struct {
	EventID        string            `json:"event_id"`
	Step           Step              `json:"step"`
	FormData       map[string]string `json:"form_data,omitempty"`
	RegistrationID string            `json:"registration_id,omitempty"`
	CheckoutURL    string            `json:"checkout_url,omitempty"`
}

// NewSession starts at data entry with no answers.
func NewSession(eventID string) *Session {
	return &Session{EventID: eventID, Step: StepDataEntry, FormData: map[string]string{}}
}

// SubmitDataEntry merges fields into the accumulated answers and advances to
// checkout review. Calling it while already in review changes nothing.
func (s *Session) SubmitDataEntry(fields map[string]string) Step {
	if s.Step == StepCheckoutReview {
		return s.Step
	}
	s.FormData = MergeFormData(s.FormData, fields)
	s.Step = StepCheckoutReview
	return s.Step
}

// GoBack returns to data entry keeping every answer. Going back invalidates a
// pending checkout so that amended answers produce a fresh registration.
func (s *Session) GoBack() Step {
	if s.Step == StepCheckoutReview {
		s.RegistrationID = ""
		s.CheckoutURL = ""
	}
	s.Step = StepDataEntry
	return s.Step
}

// Answers returns a copy of the accumulated form data.
func (s *Session) Answers() map[string]string {
	return maps.Clone(s.FormData)
}

// Normalize repairs a session decoded from untrusted storage.
func (s *Session) Normalize(eventID string) {
	if s.EventID != eventID || !s.Step.Valid() {
		*s = *NewSession(eventID)
		return
	}
	if s.FormData == nil {
		s.FormData = map[string]string{}
	}
}

// MergeFormData returns dst overlaid with src. Later answers win per field and
// fields absent from src are kept.
func MergeFormData(dst, src map[string]string) map[string]string {
	out := make(map[string]string, len(dst)+len(src))
	maps.Copy(out, dst)
	maps.Copy(out, src)
	return out
}
