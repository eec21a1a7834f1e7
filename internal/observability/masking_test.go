package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "*******cret", MaskSecret("supersecret"))
}

func TestMaskConnectionStringURL(t *testing.T) {
	masked := MaskConnectionString("postgres://support:hunter2pass@db:5432/support?sslmode=disable")
	assert.Equal(t, "postgres://support:*******pass@db:5432/support?sslmode=disable", masked)

	// no password segment stays untouched
	plain := "postgres://db:5432/support"
	assert.Equal(t, plain, MaskConnectionString(plain))
}

func TestMaskConnectionStringKeyValue(t *testing.T) {
	masked := MaskConnectionString("host=db port=5432 user=support password=hunter2pass dbname=support")
	assert.Equal(t, "host=db port=5432 user=support password=*******pass dbname=support", masked)
	assert.Equal(t, "", MaskConnectionString(""))
}
