package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("QX_STRING", "  value  ")
	t.Setenv("QX_BLANK", "   ")
	t.Setenv("QX_INT", "12")
	t.Setenv("QX_BAD_INT", "twelve")
	t.Setenv("QX_BOOL", "false")

	assert.Equal(t, "value", getEnv("QX_STRING", "x"))
	assert.Equal(t, "x", getEnv("QX_BLANK", "x"))
	assert.Equal(t, "x", getEnv("QX_UNSET", "x"))
	assert.Equal(t, 12, getEnvInt("QX_INT", 1))
	assert.Equal(t, 1, getEnvInt("QX_BAD_INT", 1))
	assert.Equal(t, int64(12), getEnvInt64("QX_INT", 1))
	assert.False(t, getEnvBool("QX_BOOL", true))
	assert.True(t, getEnvBool("QX_UNSET", true))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestTextractConfigured(t *testing.T) {
	assert.False(t, (&TextractConfig{AccessKey: "k"}).Configured())
	assert.True(t, (&TextractConfig{AccessKey: "k", SecretKey: "s"}).Configured())
}
