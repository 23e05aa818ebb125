package parent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParent_passwordRoundTrip(t *testing.T) {
	var p Parent
	require.NoError(t, p.SetPassword("s3cr3t-pass"))

	assert.NoError(t, p.CheckPassword("s3cr3t-pass"))
	assert.Error(t, p.CheckPassword("wrong"))
	assert.NotContains(t, string(p.PasswordHash), "s3cr3t-pass")
}

func TestParent_FullName(t *testing.T) {
	p := Parent{FirstName: "Grace", LastName: "Wanjiru"}
	assert.Equal(t, "Grace Wanjiru", p.FullName())

	p = Parent{FirstName: "Grace"}
	assert.Equal(t, "Grace", p.FullName())
}
