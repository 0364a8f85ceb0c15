package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchResult_Header(t *testing.T) {
	r := FetchResult{Headers: map[string]string{
		"content-type": "text/html; charset=utf-8",
		"Location":     "/next",
	}}

	assert.Equal(t, "text/html; charset=utf-8", r.Header("Content-Type"))
	assert.Equal(t, "text/html; charset=utf-8", r.ContentType())
	assert.Equal(t, "/next", r.Header("location"))
	assert.Empty(t, r.Header("X-Missing"))

	var empty FetchResult
	assert.Empty(t, empty.Header("Content-Type"))
}

func TestReason_String(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonUnset, "unset"},
		{ReasonAdmitted, "admitted"},
		{ReasonMalformedURL, "malformed_url"},
		{ReasonAlreadyVisited, "already_visited"},
		{ReasonTrap, "trap"},
		{ReasonDead, "dead"},
		{ReasonLowInformation, "low_information"},
		{ReasonOutOfScope, "out_of_scope"},
		{ReasonDuplicate, "duplicate"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.reason.String())
	}
}

func TestReason_IsValid(t *testing.T) {
	for _, r := range AllReasons {
		assert.True(t, r.IsValid(), "Reason(%q).IsValid()", string(r))
	}
	assert.True(t, ReasonAdmitted.IsValid())
	assert.False(t, ReasonUnset.IsValid())
	assert.False(t, Reason("arbitrary").IsValid())
}

func TestVerdictConstructors(t *testing.T) {
	assert.Equal(t, Verdict{Admitted: true, Reason: ReasonAdmitted}, Admit())
	v := Reject(ReasonTrap)
	assert.False(t, v.Admitted)
	assert.Equal(t, ReasonTrap, v.Reason)
}
