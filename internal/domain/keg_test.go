package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"gochopp/internal/domain"
)

func TestFitsLitersColumn(t *testing.T) {
	tests := []struct {
		value string
		scale bool
		fits  bool
	}{
		{"20", true, true},
		{"20.125", true, true},
		{"20.0000", true, true},
		{"20.0004", false, false},
		{"0.0004", false, false},
		{"9999999.999", true, true},
		{"10000000", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := decimal.RequireFromString(tt.value)
			assert.Equal(t, tt.scale, domain.FitsLitersScale(v))
			assert.Equal(t, tt.fits, domain.FitsLitersColumn(v))
		})
	}
}
