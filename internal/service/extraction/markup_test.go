package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTextFormat(t *testing.T) {
	for in, want := range map[string]TextFormat{"": FormatPlain, "plain": FormatPlain, " HTML ": FormatHTML} {
		got, err := ParseTextFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTextFormat("markdown")
	assert.Error(t, err)
}

func TestPlainText(t *testing.T) {
	got := plainText(`<p>Motor <b>Cummins</b> ISX15</p><br/>Susp: Neum&aacute;tica<img src=x onerror=alert(1)>`)
	assert.Equal(t, "Motor Cummins ISX15\n\nSusp: Neumática", got)
}
