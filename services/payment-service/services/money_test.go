package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
)

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     int64
		wantErr  bool
	}{
		{"100.00", "usd", 10000, false},
		{"100", "usd", 10000, false},
		{"0.5", "usd", 50, false},
		{"0.05", "USD", 5, false},
		{"1500", "jpy", 1500, false},
		{"10.001", "usd", 0, true},
		{"15.5", "jpy", 0, true},
		{"-5.00", "usd", 0, true},
		{"+5.00", "usd", 0, true},
		{"1e3", "usd", 0, true},
		{" 5.00", "usd", 0, true},
		{"5.", "usd", 0, true},
		{".50", "usd", 0, true},
		{"", "usd", 0, true},
		{"99999999999999999999", "usd", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in+"_"+tc.currency, func(t *testing.T) {
			got, err := services.ParseMinorUnits(tc.in, tc.currency)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "110.00", services.FormatMinorUnits(11000, "usd"))
	assert.Equal(t, "0.05", services.FormatMinorUnits(5, "eur"))
	assert.Equal(t, "1500", services.FormatMinorUnits(1500, "jpy"))
}
