package mail

import (
	"strconv"
	"strings"
)

// Priority is the message importance level.
type Priority int

const (
	PriorityHighest Priority = 1
	PriorityHigh    Priority = 2
	PriorityNormal  Priority = 3
	PriorityLow     Priority = 4
	PriorityLowest  Priority = 5
)

// Valid reports whether p is one of the defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	default:
		return "priority(" + strconv.Itoa(int(p)) + ")"
	}
}

// Header returns the X-Priority header value, e.g. "1 (Highest)".
func (p Priority) Header() string {
	s := p.String()
	if !p.Valid() {
		return strconv.Itoa(int(p))
	}
	return strconv.Itoa(int(p)) + " (" + strings.ToUpper(s[:1]) + s[1:] + ")"
}
