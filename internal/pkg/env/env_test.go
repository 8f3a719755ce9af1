package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	old := Env
	t.Cleanup(func() { Env = old })

	Env = map[string]string{"SUBGATE_FROM_FILE": "file"}
	t.Setenv("SUBGATE_FROM_OS", "os")
	t.Setenv("SUBGATE_FROM_FILE", "os")

	assert.Equal(t, "file", GetEnv("SUBGATE_FROM_FILE", "def"))
	assert.Equal(t, "os", GetEnv("SUBGATE_FROM_OS", "def"))
	assert.Equal(t, "def", GetEnv("SUBGATE_MISSING", "def"))
}

func TestIsDev(t *testing.T) {
	old := Env
	t.Cleanup(func() { Env = old })

	Env = map[string]string{"APP_ENV": "dev"}
	assert.True(t, IsDev())
	Env = map[string]string{"APP_ENV": "prod"}
	assert.False(t, IsDev())
}
