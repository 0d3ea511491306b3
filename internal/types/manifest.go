package types

import (
	"encoding/json"
	"strings"
)

// PricingTemplate selects how units are priced
type PricingTemplate string

const (
	TemplateFlat   PricingTemplate = "flat"
	TemplateTiered PricingTemplate = "tiered"
)

// PaginationStrategy describes how a provider pages its usage endpoint
type PaginationStrategy string

const (
	PaginationCursor PaginationStrategy = "cursor"
	PaginationPage   PaginationStrategy = "page"
	PaginationOffset PaginationStrategy = "offset"
	PaginationNone   PaginationStrategy = "none"
)

// Manifest describes a third-party usage API: how to authenticate, where the
// usage endpoint lives, how to map its records and how to price them.
type Manifest struct {
	Name        string       `json:"name" yaml:"name"`
	Slug        string       `json:"slug" yaml:"slug"`
	Environment string       `json:"environment" yaml:"environment"`
	Auth        AuthSpec     `json:"auth" yaml:"auth"`
	Endpoint    EndpointSpec `json:"endpoint" yaml:"endpoint"`
	Mapping     MappingSpec  `json:"mapping" yaml:"mapping"`
	Pricing     PricingSpec  `json:"pricing" yaml:"pricing"`
}

// AuthSpec is descriptive only; the dry-run never sends requests.
type AuthSpec struct {
	Type           string `json:"type" yaml:"type"`
	HeaderName     string `json:"headerName" yaml:"headerName"`
	Prefix         string `json:"prefix" yaml:"prefix"`
	PlaceholderKey string `json:"placeholderKey" yaml:"placeholderKey"`
}

type EndpointSpec struct {
	URL        string         `json:"url" yaml:"url"`
	Method     string         `json:"method" yaml:"method"`
	Pagination PaginationSpec `json:"pagination" yaml:"pagination"`
	JSONPath   string         `json:"jsonpath,omitempty" yaml:"jsonpath,omitempty"`
}

type PaginationSpec struct {
	Strategy       PaginationStrategy `json:"strategy" yaml:"strategy"`
	CursorParam    string             `json:"cursorParam,omitempty" yaml:"cursorParam,omitempty"`
	NextCursorPath string             `json:"nextCursorPath,omitempty" yaml:"nextCursorPath,omitempty"`
	PageParam      string             `json:"pageParam,omitempty" yaml:"pageParam,omitempty"`
	PageSizeParam  string             `json:"pageSizeParam,omitempty" yaml:"pageSizeParam,omitempty"`
}

// MappingSpec holds path expressions. RecordsPath is evaluated against the
// whole payload, every other path against a single record.
type MappingSpec struct {
	RecordsPath   string            `json:"recordsPath" yaml:"recordsPath"`
	IDPath        string            `json:"idPath" yaml:"idPath"`
	UsagePath     string            `json:"usagePath" yaml:"usagePath"`
	TimestampPath string            `json:"timestampPath" yaml:"timestampPath"`
	MetadataPaths map[string]string `json:"metadataPaths" yaml:"metadataPaths"`
}

// PricingSpec is the pricing policy applied to every normalized row
type PricingSpec struct {
	Template PricingTemplate `json:"template" yaml:"template"`
	Currency string          `json:"currency" yaml:"currency"`
	UnitName string          `json:"unitName" yaml:"unitName"`
	FlatRate *float64        `json:"flatRate,omitempty" yaml:"flatRate,omitempty"`
	Tiers    []PricingTier   `json:"tiers,omitempty" yaml:"tiers,omitempty"`
}

// Rate returns the flat rate, 0 when unset.
func (p PricingSpec) Rate() float64 {
	if p.FlatRate == nil {
		return 0
	}
	return *p.FlatRate
}

// CurrencyCode returns the upper-cased currency code
func (p PricingSpec) CurrencyCode() string {
	return strings.ToUpper(strings.TrimSpace(p.Currency))
}

// PricingTier is one pricing band. UpToUnits is a cumulative absolute cap;
// nil means the band is unbounded.
type PricingTier struct {
	UpToUnits *float64 `json:"upToUnits" yaml:"upToUnits"`
	Rate      float64  `json:"rate" yaml:"rate"`
}

// UnmarshalJSON accepts both "upToUnits" and the shorter "upto" key.
func (t *PricingTier) UnmarshalJSON(data []byte) error {
	var raw struct {
		UpToUnits *float64 `json:"upToUnits"`
		UpTo      *float64 `json:"upto"`
		Rate      float64  `json:"rate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.UpToUnits = raw.UpToUnits
	if t.UpToUnits == nil {
		t.UpToUnits = raw.UpTo
	}
	t.Rate = raw.Rate
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML manifests.
func (t *PricingTier) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		UpToUnits *float64 `yaml:"upToUnits"`
		UpTo      *float64 `yaml:"upto"`
		Rate      float64  `yaml:"rate"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	t.UpToUnits = raw.UpToUnits
	if t.UpToUnits == nil {
		t.UpToUnits = raw.UpTo
	}
	t.Rate = raw.Rate
	return nil
}

// Float returns a pointer to v, handy for FlatRate and UpToUnits literals.
func Float(v float64) *float64 {
	return &v
}
