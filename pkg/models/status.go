package models

// Reason names the gate that decided a page's fate in the admission pipeline
type Reason string

const (
	ReasonUnset          Reason = ""                // Zero value = unset/unknown
	ReasonAdmitted       Reason = "admitted"        // Passed every gate
	ReasonMalformedURL   Reason = "malformed_url"   // Requested URL could not be normalized
	ReasonAlreadyVisited Reason = "already_visited" // URL (or redirect target) seen earlier in the run
	ReasonTrap           Reason = "trap"            // Path pattern exceeded the visit threshold
	ReasonDead           Reason = "dead"            // Non-200 status or empty body
	ReasonLowInformation Reason = "low_information" // Too few words of visible text
	ReasonOutOfScope     Reason = "out_of_scope"    // Redirect target left the allowed domains
	ReasonDuplicate      Reason = "duplicate"       // Visible text matches an earlier page
)

// AllReasons lists every rejection reason in pipeline order
var AllReasons = []Reason{
	ReasonMalformedURL,
	ReasonAlreadyVisited,
	ReasonTrap,
	ReasonDead,
	ReasonLowInformation,
	ReasonOutOfScope,
	ReasonDuplicate,
}

// String implements fmt.Stringer for logging
func (r Reason) String() string {
	if r == "" {
		return "unset"
	}
	return string(r)
}

// IsValid returns true if the reason is a known pipeline outcome
func (r Reason) IsValid() bool {
	switch r {
	case ReasonAdmitted, ReasonMalformedURL, ReasonAlreadyVisited, ReasonTrap,
		ReasonDead, ReasonLowInformation, ReasonOutOfScope, ReasonDuplicate:
		return true
	}
	return false
}

// Verdict is the result of one admission gate
type Verdict struct {
	Admitted bool
	Reason   Reason
}

// Admit returns the passing verdict
func Admit() Verdict {
	return Verdict{Admitted: true, Reason: ReasonAdmitted}
}

// Reject returns a failing verdict with the given reason
func Reject(reason Reason) Verdict {
	return Verdict{Admitted: false, Reason: reason}
}
