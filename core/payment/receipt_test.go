package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0.00"},
		{5, "5.00"},
		{500, "500.00"},
		{5000, "5,000.00"},
		{30000, "30,000.00"},
		{1234567, "1,234,567.00"},
		{-30000, "-30,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.amount))
		})
	}
}

func TestReceipt(t *testing.T) {
	pmt := Payment{
		AdmissionNumber: "SCH-2024-001",
		Amount:          30000,
		Currency:        "KES",
		Reference:       "SP-ABCDEF0123456789",
		Status:          StatusSuccess,
		Date:            time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC),
		Email:           "payer@test.cd",
		Method:          "card",
	}

	doc, err := Receipt("ScholarlyPay", "Jane Mwangi", pmt)
	require.NoError(t, err)

	for _, want := range []string{
		"ScholarlyPay",
		"SP-ABCDEF0123456789",
		"Jane Mwangi",
		"SCH-2024-001",
		"KES 30,000.00",
		"card",
		"success",
		"payer@test.cd",
		"17 May 2024 09:30",
	} {
		assert.True(t, strings.Contains(doc, want), "receipt missing %q:\n%s", want, doc)
	}
}
