package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	tests := []struct {
		name    string
		address Address
		want    string
	}{
		{"bare", Address{Address: "john@example.com"}, "john@example.com"},
		{"named", Address{Address: "john@example.com", Name: "John Doe"}, `"John Doe" <john@example.com>`},
		{"quoted name", Address{Address: "j@example.com", Name: `J "Jo" D`}, `"J \"Jo\" D" <j@example.com>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.address.String())
		})
	}
}

func TestAddresses(t *testing.T) {
	assert.Equal(t, []Address{{Address: "a@example.com"}, {Address: "b@example.com"}}, Addresses("a@example.com", "b@example.com"))
	assert.Empty(t, Addresses())
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("John Doe <john@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", a.Address)
	assert.Equal(t, "John Doe", a.Name)

	a, err = ParseAddress("jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", a.Address)
	assert.Empty(t, a.Name)

	_, err = ParseAddress("not an address")
	assert.Error(t, err)
}

func TestParseAddressList(t *testing.T) {
	list, err := ParseAddressList(`"Doe, John" <john@example.com>, jane@example.com`)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "john@example.com", list[0].Address)
	assert.Equal(t, "jane@example.com", list[1].Address)

	_, err = ParseAddressList("a@example.com, broken")
	assert.Error(t, err)
}

func TestSplitAddressList(t *testing.T) {
	assert.Equal(t,
		[]string{`"A, B" <a@example.com>`, `<c,d@example.com>`, `e@example.com`},
		splitAddressList(`"A, B" <a@example.com>, <c,d@example.com>,, e@example.com `),
	)
}
