package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvatarInitial(t *testing.T) {
	tests := []struct {
		name      string
		firstName string
		username  string
		want      string
	}{
		{"first name wins", "alice", "zed", "A"},
		{"already uppercase", "Bob", "zed", "B"},
		{"falls back to username", "", "carol", "C"},
		{"unicode first name", "ólafur", "zed", "Ó"},
		{"single letter username", "", "x", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvatarInitial(tt.firstName, tt.username))
		})
	}
}

func TestProfileAvatarInitial(t *testing.T) {
	p := &Profile{Username: "testuser"}
	assert.Equal(t, "T", p.AvatarInitial())

	p.FirstName = "alice"
	assert.Equal(t, "A", p.AvatarInitial())
}
