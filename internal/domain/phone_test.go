package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    PhoneNumber
		wantErr bool
	}{
		{name: "canonical", raw: "+15551234567", want: "+15551234567"},
		{name: "missing plus", raw: "15551234567", want: "+15551234567"},
		{name: "formatted", raw: "+1 555-123-4567", want: "+15551234567"},
		{name: "parentheses", raw: "(555) 123 4567", want: "+5551234567"},
		{name: "leading zeros kept", raw: "0044 20 7946 0000", want: "+00442079460000"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no digits", raw: "+ - ()", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneRepresentationsAgree(t *testing.T) {
	a, err := NormalizePhone("+15551234567")
	require.NoError(t, err)
	b, err := NormalizePhone("15551234567")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "15551234567", a.Digits())
}
