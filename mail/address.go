package mail

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/zostay/go-addr/pkg/addr"
)

// Address represents an email address.
type Address struct {
	Address string // "john@example.com"
	Name    string // "John Doe"
}

// String formats the address the way it appears in a header.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	escaped := strings.ReplaceAll(a.Name, "\"", "\\\"")
	return "\"" + escaped + "\" <" + a.Address + ">"
}

// Addresses builds an address list from bare addresses.
func Addresses(addresses ...string) []Address {
	result := make([]Address, len(addresses))
	for i, a := range addresses {
		result[i] = Address{Address: a}
	}
	return result
}

// ParseAddress parses a single mailbox such as `John Doe <john@example.com>`.
func ParseAddress(s string) (Address, error) {
	mb, err := addr.ParseEmailMailbox(s)
	if err != nil {
		return Address{}, errors.Wrapf(err, "failed to parse address %q", s)
	}
	name := strings.TrimSpace(mb.DisplayName())
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		name = strings.ReplaceAll(name[1:len(name)-1], `\"`, `"`)
	}
	return Address{Address: mb.Address(), Name: name}, nil
}

// ParseAddressList parses a comma separated list of mailboxes.
func ParseAddressList(s string) ([]Address, error) {
	parts := splitAddressList(s)
	result := make([]Address, 0, len(parts))
	for _, p := range parts {
		a, err := ParseAddress(p)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// splitAddressList splits on commas outside of quotes and angle brackets.
func splitAddressList(s string) []string {
	var (
		parts   []string
		current strings.Builder
		quoted  bool
		angle   bool
		escaped bool
	)
	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			parts = append(parts, p)
		}
		current.Reset()
	}
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == '<' && !quoted:
			angle = true
		case r == '>' && !quoted:
			angle = false
		case r == ',' && !quoted && !angle:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return parts
}

func cloneAddresses(a []Address) []Address {
	if a == nil {
		return nil
	}
	result := make([]Address, len(a))
	copy(result, a)
	return result
}

// mergeAddresses appends added to base. An absent base yields added itself.
func mergeAddresses(base, added []Address) []Address {
	if base == nil {
		return cloneAddresses(added)
	}
	result := make([]Address, 0, len(base)+len(added))
	result = append(result, base...)
	return append(result, added...)
}

func formatAddressList(a []Address) string {
	formatted := make([]string, len(a))
	for i, v := range a {
		formatted[i] = v.String()
	}
	return strings.Join(formatted, ", ")
}
