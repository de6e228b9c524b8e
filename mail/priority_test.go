package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		priority Priority
		valid    bool
		str      string
		header   string
	}{
		{PriorityHighest, true, "highest", "1 (Highest)"},
		{PriorityHigh, true, "high", "2 (High)"},
		{PriorityNormal, true, "normal", "3 (Normal)"},
		{PriorityLow, true, "low", "4 (Low)"},
		{PriorityLowest, true, "lowest", "5 (Lowest)"},
		{Priority(9), false, "priority(9)", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.priority.Valid())
			assert.Equal(t, tt.str, tt.priority.String())
			assert.Equal(t, tt.header, tt.priority.Header())
		})
	}
}
