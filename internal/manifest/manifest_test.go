package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	assert.Empty(t, Validate(Default()))
}

func TestDefault_DryRunsSamplePayload(t *testing.T) {
	calc := calculator.New(pricing.NewService(), calculator.Options{
		Now:   func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string { return "run" },
	})

	result, err := calc.DryRun(Default(), SamplePayload())
	require.NoError(t, err)

	assert.Equal(t, 3, result.SampleCount)
	assert.InDelta(t, 10.3, result.TotalUnits, 1e-9)
	assert.InDelta(t, 0.0206, result.DailyCost, 1e-9)
	assert.InDelta(t, 0.618, result.MonthlyCost, 1e-9)
	assert.Equal(t, "evt_004", result.NextCursor)
	assert.Equal(t, "notion-gpt-large", result.Rows[2].Metadata["model"])
	assert.Equal(t, "experiments", result.Rows[2].Metadata["project"])
	assert.Empty(t, result.Issues)
}

func TestParse_UptoAlias(t *testing.T) {
	doc := `{"pricing":{"template":"tiered","currency":"usd","tiers":[{"upto":10,"rate":1},{"upto":null,"rate":0.5}]}}`

	m, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, m.Pricing.Tiers, 2)
	require.NotNil(t, m.Pricing.Tiers[0].UpToUnits)
	assert.Equal(t, 10.0, *m.Pricing.Tiers[0].UpToUnits)
	assert.Nil(t, m.Pricing.Tiers[1].UpToUnits)
	assert.Equal(t, "USD", m.Pricing.CurrencyCode())
}

func TestParse_YAML(t *testing.T) {
	doc := `
slug: acme
mapping:
  recordsPath: $.data
  usagePath: qty
pricing:
  template: tiered
  currency: EUR
  tiers:
    - upto: 100
      rate: 0.1
    - upToUnits: null
      rate: 0.05
`
	m, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "acme", m.Slug)
	assert.Equal(t, "$.data", m.Mapping.RecordsPath)
	require.Len(t, m.Pricing.Tiers, 2)
	assert.Equal(t, 100.0, *m.Pricing.Tiers[0].UpToUnits)
	assert.Nil(t, m.Pricing.Tiers[1].UpToUnits)
}

func TestParse_InvalidJSONHasHint(t *testing.T) {
	_, err := Parse([]byte("{"), FormatJSON)
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestExportRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Export(Default(), format)
			require.NoError(t, err)

			m, err := Parse(data, format)
			require.NoError(t, err)
			assert.Equal(t, Default(), m)
		})
	}
}

func TestExport_JSONIndent(t *testing.T) {
	data, err := Export(Default(), FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"slug\": \"notion-ai\"")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	data, err := Export(Default(), FormatYAML)
	require.NoError(t, err)
	path := filepath.Join(dir, "notion.yml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "notion-ai", m.Slug)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var loaderErr types.LoaderError
	assert.True(t, errors.As(err, &loaderErr))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("a.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("a.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("manifest"))
}

func fields(problems []types.ValidationError) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.Field)
	}
	return out
}

func TestValidate(t *testing.T) {
	m := types.Manifest{
		Endpoint: types.EndpointSpec{Pagination: types.PaginationSpec{Strategy: "scroll"}},
		Pricing: types.PricingSpec{
			Template: "volume",
			Tiers: []types.PricingTier{
				{UpToUnits: nil, Rate: 1},
				{UpToUnits: types.Float(10), Rate: -1},
				{UpToUnits: types.Float(5), Rate: 1},
			},
		},
	}

	problems := Validate(m)
	assert.ElementsMatch(t, []string{
		"mapping.recordsPath",
		"mapping.usagePath",
		"endpoint.pagination.strategy",
		"pricing.currency",
		"pricing.template",
		"pricing.tiers[0].upToUnits",
		"pricing.tiers[1].rate",
		"pricing.tiers[2].upToUnits",
	}, fields(problems))

	for _, p := range problems {
		assert.True(t, errors.Is(p, types.ErrInvalidManifest))
	}
}

func TestValidate_FlatNeedsRate(t *testing.T) {
	m := Default()
	m.Pricing.FlatRate = nil
	assert.Equal(t, []string{"pricing.flatRate"}, fields(Validate(m)))
}

func TestConnectionPreview(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	record := ConnectionPreview(Default(), now)
	assert.Equal(t, "connector-notion-ai-1717228800000", record.ID)
	assert.Equal(t, "notion-ai", record.Provider)
	assert.Equal(t, "prod", record.Environment)
	assert.Equal(t, "active", record.Status)
	assert.Equal(t, "X-Notion-Key: Bearer ***", record.MaskedKey)
	assert.Equal(t, "Notion AI usage . prod", record.DisplayName)
	assert.Equal(t, now, record.CreatedAt)
}

func TestAuthHeaderPreview_NoPrefix(t *testing.T) {
	m := Default()
	m.Auth.Prefix = ""
	assert.Equal(t, "X-Notion-Key: ***", AuthHeaderPreview(m))
}
