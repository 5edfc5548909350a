package resolver

import (
	"fmt"

	"github.com/dusk-indust/govgen/internal/values"
)

// Validation is the structural completeness report for a resolved
// configuration. Warnings never affect Valid.
type Validation struct {
	Valid    bool     `json:"valid"`
	Missing  []string `json:"missing"`
	Warnings []string `json:"warnings"`
}

var requiredPaths = []string{"clientName", "industry", "naming.orgPrefix"}

// Validate checks that the required fields are present and non-empty and
// reports non-blocking warnings for suspicious module, adapter, and
// classification settings.
func Validate(cfg values.Map) Validation {
	v := Validation{Missing: []string{}, Warnings: []string{}}
	for _, path := range requiredPaths {
		if isEmpty(cfg.Get(path)) {
			v.Missing = append(v.Missing, path)
		}
	}

	if len(cfg.Strings("modules.selected")) == 0 && len(cfg.Strings("modules.recommended")) == 0 {
		v.Warnings = append(v.Warnings, "no modules selected and none recommended; no standards will be generated")
	}
	if len(cfg.Strings("adapters.enabled")) == 0 {
		v.Warnings = append(v.Warnings, "no adapters enabled; no platform outputs will be generated")
	}

	labels, hasLabels := values.AsSlice(cfg.Get("classification.tierLabels"))
	count, hasCount := cfg.Get("classification.tierCount").(float64)
	if (hasLabels || hasCount) && (!hasLabels || !hasCount || count != float64(len(labels))) {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"classification.tierCount (%v) does not match tierLabels length (%s)",
			describe(cfg.Get("classification.tierCount")), describeLen(labels, hasLabels)))
	}

	v.Valid = len(v.Missing) == 0
	return v
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	if s, ok := values.AsSlice(v); ok {
		return len(s) == 0
	}
	if m, ok := values.AsMap(v); ok {
		return len(m) == 0
	}
	return false
}

func describe(v any) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprint(v)
}

func describeLen(s []any, ok bool) string {
	if !ok {
		return "unset"
	}
	return fmt.Sprint(len(s))
}

// Parameter describes one editable configuration field.
type Parameter struct {
	Path        string   `json:"path"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options,omitempty"`
	Group       string   `json:"group"`
}

// ParameterSchema lists the configuration fields a client is expected to
// fill in, grouped for presentation.
func ParameterSchema() []Parameter {
	return []Parameter{
		{Path: "clientName", Type: "string", Required: true, Label: "Client Name", Description: "Full client organization name", Group: "general"},
		{Path: "industry", Type: "select", Required: true, Label: "Industry", Description: "Industry vertical", Options: []string{"manufacturing", "financial-services", "healthcare", "custom"}, Group: "general"},
		{Path: "environment.cloud", Type: "select", Required: true, Label: "Cloud Provider", Options: []string{"azure", "aws", "gcp", "hybrid"}, Group: "environment"},
		{Path: "environment.dataplatform", Type: "select", Required: true, Label: "Data Platform", Options: []string{"fabric", "databricks", "synapse", "snowflake"}, Group: "environment"},
		{Path: "environment.governance", Type: "select", Required: true, Label: "Governance Tool", Options: []string{"purview", "collibra", "alation", "custom"}, Group: "environment"},
		{Path: "naming.orgPrefix", Type: "string", Required: true, Label: "Org Prefix", Description: "3-5 character organization abbreviation", Group: "naming"},
		{Path: "naming.separator", Type: "select", Required: true, Label: "Separator", Options: []string{"_", "-"}, Group: "naming"},
		{Path: "classification.tierCount", Type: "number", Required: true, Label: "Classification Tiers", Description: "Number of data classification tiers (3-5)", Group: "classification"},
		{Path: "classification.tierLabels", Type: "array", Required: true, Label: "Tier Labels", Description: "Labels for each classification tier", Group: "classification"},
		{Path: "classification.regulatoryFrameworks", Type: "multiselect", Label: "Regulatory Frameworks", Options: []string{"ITAR", "EAR", "SOX", "PCI-DSS", "HIPAA", "GDPR", "CCPA", "NIST-800-171", "CMMC", "Basel-III", "GLBA", "HITECH", "FDA-21CFR11"}, Group: "classification"},
	}
}
