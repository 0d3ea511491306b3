// Package manifest loads, validates and exports connector manifests.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/types"
	"gopkg.in/yaml.v3"
)

// Format is a manifest document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension; anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Load reads a manifest file.
func Load(path string) (types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Manifest{}, errors.WithHint(
			types.LoaderError{Path: path, Err: err},
			"run `connector manifest init > manifest.json` to start from the built-in manifest")
	}
	m, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return types.Manifest{}, types.LoaderError{Path: path, Err: err}
	}
	return m, nil
}

// Parse decodes a manifest document.
func Parse(data []byte, format Format) (types.Manifest, error) {
	var m types.Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return m, errors.Wrap(err, "parse yaml manifest")
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &m); err != nil {
			return m, errors.WithHint(errors.Wrap(err, "parse json manifest"),
				"manifest fields are camelCase, e.g. recordsPath and flatRate")
		}
	default:
		return m, errors.Newf("unknown manifest format %q", format)
	}
	return m, nil
}

// Export encodes a manifest, JSON with two-space indentation or YAML.
func Export(m types.Manifest, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, errors.Wrap(err, "encode yaml manifest")
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "encode json manifest")
		}
		return append(data, '\n'), nil
	}
	return nil, errors.Newf("unknown manifest format %q", format)
}

// Default returns the built-in Notion AI usage manifest.
func Default() types.Manifest {
	return types.Manifest{
		Name:        "Notion AI usage",
		Slug:        "notion-ai",
		Environment: "prod",
		Auth: types.AuthSpec{
			Type:           "header",
			HeaderName:     "X-Notion-Key",
			Prefix:         "Bearer ",
			PlaceholderKey: "notion-sk-***",
		},
		Endpoint: types.EndpointSpec{
			URL:    "https://api.notion.com/v1/usage",
			Method: "GET",
			Pagination: types.PaginationSpec{
				Strategy:       types.PaginationCursor,
				CursorParam:    "start_cursor",
				NextCursorPath: "$.next_cursor",
				PageSizeParam:  "page_size",
			},
			JSONPath: "$.events",
		},
		Mapping: types.MappingSpec{
			RecordsPath:   "$.events",
			IDPath:        "event_id",
			UsagePath:     "tokens",
			TimestampPath: "timestamp",
			MetadataPaths: map[string]string{
				"model":   "model",
				"project": "project",
			},
		},
		Pricing: types.PricingSpec{
			Template: types.TemplateFlat,
			Currency: "USD",
			UnitName: "1K tokens",
			FlatRate: types.Float(0.002),
			Tiers: []types.PricingTier{
				{UpToUnits: types.Float(500000), Rate: 0.002},
				{UpToUnits: nil, Rate: 0.0015},
			},
		},
	}
}

const samplePayload = `{
  "next_cursor": "evt_004",
  "events": [
    {
      "event_id": "evt_001",
      "timestamp": "2024-06-01T08:00:00Z",
      "tokens": 2.1,
      "model": "notion-gpt-small",
      "project": "prod-docs"
    },
    {
      "event_id": "evt_002",
      "timestamp": "2024-06-01T09:00:00Z",
      "tokens": 3.4,
      "model": "notion-gpt-small",
      "project": "prod-docs"
    },
    {
      "event_id": "evt_003",
      "timestamp": "2024-06-01T10:00:00Z",
      "tokens": 4.8,
      "model": "notion-gpt-large",
      "project": "experiments"
    }
  ]
}`

// SamplePayload returns the payload that goes with Default.
func SamplePayload() string {
	return samplePayload
}

// Validate reports every problem it finds. Dry-runs still accept a manifest
// with problems.
func Validate(m types.Manifest) []types.ValidationError {
	var problems []types.ValidationError
	add := func(field, format string, args ...interface{}) {
		problems = append(problems, types.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(m.Mapping.RecordsPath) == "" {
		add("mapping.recordsPath", "must not be empty")
	}
	if strings.TrimSpace(m.Mapping.UsagePath) == "" {
		add("mapping.usagePath", "must not be empty")
	}

	switch m.Endpoint.Pagination.Strategy {
	case "", types.PaginationCursor, types.PaginationPage, types.PaginationOffset, types.PaginationNone:
	default:
		add("endpoint.pagination.strategy", "unknown strategy %q", m.Endpoint.Pagination.Strategy)
	}
	if m.Endpoint.Pagination.Strategy == types.PaginationCursor && m.Endpoint.Pagination.NextCursorPath == "" {
		add("endpoint.pagination.nextCursorPath", "cursor pagination needs a next cursor path")
	}

	pricing := m.Pricing
	if pricing.CurrencyCode() == "" {
		add("pricing.currency", "must not be empty")
	}
	switch pricing.Template {
	case types.TemplateFlat:
		if pricing.FlatRate == nil {
			add("pricing.flatRate", "flat template needs a rate")
		} else if *pricing.FlatRate < 0 || math.IsNaN(*pricing.FlatRate) {
			add("pricing.flatRate", "must not be negative")
		}
	case types.TemplateTiered:
		if len(pricing.Tiers) == 0 {
			add("pricing.tiers", "tiered template needs at least one tier, the flat rate is used instead")
		}
	default:
		add("pricing.template", "unknown template %q, tiers are used", pricing.Template)
	}

	previous := math.Inf(-1)
	for i, tier := range pricing.Tiers {
		field := fmt.Sprintf("pricing.tiers[%d]", i)
		if tier.Rate < 0 || math.IsNaN(tier.Rate) {
			add(field+".rate", "must not be negative")
		}
		if tier.UpToUnits == nil {
			if i != len(pricing.Tiers)-1 {
				add(field+".upToUnits", "only the last tier may be unbounded")
			}
			continue
		}
		if *tier.UpToUnits <= previous {
			add(field+".upToUnits", "caps must be ascending, %s follows %s",
				formatCap(*tier.UpToUnits), formatCap(previous))
		}
		previous = *tier.UpToUnits
	}

	return problems
}

func formatCap(v float64) string {
	return fmt.Sprintf("%g", v)
}

// AuthHeaderPreview renders the auth header with the key masked.
func AuthHeaderPreview(m types.Manifest) string {
	return fmt.Sprintf("%s: %s***", m.Auth.HeaderName, m.Auth.Prefix)
}

// ConnectionPreview builds the connection record an application would store
// after accepting the manifest.
func ConnectionPreview(m types.Manifest, now time.Time) types.ConnectionRecord {
	return types.ConnectionRecord{
		ID:          fmt.Sprintf("connector-%s-%d", m.Slug, now.UnixMilli()),
		Provider:    m.Slug,
		Environment: m.Environment,
		Status:      "active",
		MaskedKey:   AuthHeaderPreview(m),
		DisplayName: fmt.Sprintf("%s . %s", m.Name, m.Environment),
		CreatedAt:   now.UTC(),
	}
}
