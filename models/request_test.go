package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusDenied, true},
		{StatusPending, StatusAvailable, false}, // no skipping straight to available
		{StatusApproved, StatusAvailable, true},
		{StatusApproved, StatusApproved, true}, // acquisition retry
		{StatusApproved, StatusDenied, false},
		{StatusApproved, StatusPending, false},
		{StatusDenied, StatusApproved, false},
		{StatusDenied, StatusPending, false},
		{StatusAvailable, StatusApproved, false},
		{StatusAvailable, StatusPending, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.ok, ValidTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
