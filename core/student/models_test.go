package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		paid  int64
		want  Status
	}{
		{"partially paid", 50000, 20000, StatusBalance},
		{"exactly paid", 50000, 50000, StatusPaid},
		{"overpaid", 50000, 51000, StatusPaid},
		{"one unit short", 50000, 49999, StatusBalance},
		{"nothing paid", 50000, 0, StatusBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.total, tt.paid))
		})
	}
}
