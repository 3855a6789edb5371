package fields

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/quote-extractor/internal/models"
)

func TestParseCatalogOverridesOnlyGivenLists(t *testing.T) {
	c, err := ParseCatalog([]byte(`
models:
  - LoneStar
  - "  "
  - lonestar
  - "579"
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"LoneStar", "579"}, c.Models)
	assert.Equal(t, DefaultCatalog().Brands, c.Brands)
	assert.Equal(t, DefaultCatalog().EngineMakers, c.EngineMakers)
}

func TestParseCatalogRejectsMalformedYAML(t *testing.T) {
	_, err := ParseCatalog([]byte("models: [unterminated"))
	assert.Error(t, err)
}

func TestLoadCatalogDrivesExtractors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brands: [Sterling, \"Western Star\"]\nengineMakers: [MaxxForce]\n"), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	got := NewResolver(NewExtractors(c)...).Resolve("Western Star 4900 con motor MaxxForce 13 y caja Eaton")
	assert.Equal(t, "Western Star", got[models.FieldBrand])
	assert.Equal(t, "MaxxForce", got[models.FieldEngineShort])
	assert.Equal(t, "MaxxForce 13", got[models.FieldEngineFull])

	// Kenworth is no longer a known brand
	got = NewResolver(NewExtractors(c)...).Resolve("Kenworth")
	assert.NotContains(t, got, models.FieldBrand)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
