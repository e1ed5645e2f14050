package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResumeFragment(t *testing.T) {
	tests := []struct {
		fragment string
		wantID   int
		wantOK   bool
	}{
		{fragment: "#module-4", wantID: 4, wantOK: true},
		{fragment: "#module-1", wantID: 1, wantOK: true},
		{fragment: "#module-6", wantID: 6, wantOK: true},
		{fragment: "#module-7"},
		{fragment: "#module-0"},
		{fragment: "#module--1"},
		{fragment: "#module-abc"},
		{fragment: "#module-"},
		{fragment: "module-4"},
		{fragment: "#lesson-4"},
		{fragment: ""},
	}
	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			id, ok := ParseResumeFragment(tt.fragment, DefaultModulesPerLevel)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestResumeSlot(t *testing.T) {
	slot := NewResumeSlot(DefaultModulesPerLevel)
	_, ok := slot.Take()
	assert.False(t, ok)

	slot.Put(4)
	assert.Equal(t, "#module-4", FormatResumeFragment(4))
	id, ok := slot.Take()
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	// one-shot
	_, ok = slot.Take()
	assert.False(t, ok)

	// invalid signals are dropped silently
	slot.PutFragment("#module-abc")
	_, ok = slot.Take()
	assert.False(t, ok)

	slot.Put(9)
	_, ok = slot.Take()
	assert.False(t, ok)
}
