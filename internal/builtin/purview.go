package builtin

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

// Compile-time interface check.
var _ unit.Unit = (*Purview)(nil)

var purviewInfo = unit.Info{
	ID:          "purview",
	Name:        "Microsoft Purview",
	Description: "Generates Purview sensitivity labels, classification rules, and glossary terms with deployment scripts.",
	Modules:     []string{"ISL-04", "ISL-02"},
	Kind:        unit.KindBuiltIn,
}

var (
	defaultTierLabels = []string{"Public", "Internal", "Confidential", "Restricted"}
	labelColors       = []string{"#4CAF50", "#2196F3", "#FF9800", "#F44336", "#9C27B0"}
	tierDescriptions  = map[string]string{
		"Public":              "Information approved for external distribution with no business impact if disclosed.",
		"Internal":            "General business information for internal use. Low impact if disclosed externally.",
		"Confidential":        "Sensitive business information requiring access controls. Moderate to high impact if disclosed.",
		"Highly Confidential": "Highly sensitive information restricted to specific business functions. High impact if disclosed.",
		"Restricted":          "Most sensitive information. Severe regulatory, legal, or business impact if disclosed.",
		"Confidential-PHI":    "Protected Health Information requiring HIPAA-compliant handling and access controls.",
		"Restricted-PHI":      "Highly sensitive PHI including psychotherapy notes and substance abuse records.",
	}
	sensitiveInfoTypes = []string{
		"Credit Card Number", "Social Security Number", "Email Address",
		"Bank Account Number", "Passport Number",
		"Tax Identification Number", "Medical Record Number",
	}
)

// Purview maps classification tiers (ISL-04) and metadata standards (ISL-02)
// onto Purview sensitivity labels, auto-classification rules and glossary
// terms.
//
// Settings under adapters.config.purview: labelPrefix, autoClassification,
// itarLabelsEnabled, pciLabelsEnabled, hipaaLabelsEnabled.
type Purview struct {
	*unit.Base
}

// NewPurview returns the Purview unit for cfg.
func NewPurview(cfg values.Map) *Purview {
	return &Purview{Base: unit.NewBase(purviewInfo, cfg)}
}

// Validate requires at least one classification tier label.
func (p *Purview) Validate() unit.Validation {
	var errs []string
	if len(p.Config().Strings("classification.tierLabels")) == 0 {
		errs = append(errs, "classification.tierLabels is required")
	}
	return unit.Validations(errs)
}

// --- outputs ---

type labelMarkings struct {
	HeaderEnabled    bool `json:"headerEnabled"`
	FooterEnabled    bool `json:"footerEnabled"`
	WatermarkEnabled bool `json:"watermarkEnabled"`
}

type protectionSettings struct {
	EncryptionEnabled  bool   `json:"encryptionEnabled"`
	AccessRestrictions string `json:"accessRestrictions"`
	OfflineAccessDays  *int   `json:"offlineAccessDays,omitempty"`
	AuditEnabled       bool   `json:"auditEnabled,omitempty"`
}

type sublabel struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

type sensitivityLabel struct {
	ID                  string             `json:"id"`
	DisplayName         string             `json:"displayName"`
	Description         string             `json:"description"`
	Tooltip             string             `json:"tooltip"`
	Order               int                `json:"order"`
	Color               string             `json:"color"`
	IsActive            bool               `json:"isActive"`
	Markings            labelMarkings      `json:"markings"`
	ProtectionSettings  protectionSettings `json:"protectionSettings"`
	AutoLabelingEnabled bool               `json:"autoLabelingEnabled"`
	ParentID            *string            `json:"parentId"`
	Sublabels           []sublabel         `json:"sublabels"`
}

type specialLabel struct {
	ID                 string             `json:"id"`
	DisplayName        string             `json:"displayName"`
	ParentID           string             `json:"parentId"`
	Description        string             `json:"description"`
	ProtectionSettings protectionSettings `json:"protectionSettings"`
}

type sensitivityLabels struct {
	ClientName    string             `json:"clientName"`
	GeneratedAt   string             `json:"generatedAt"`
	TotalLabels   int                `json:"totalLabels"`
	Labels        []sensitivityLabel `json:"labels"`
	SpecialLabels []specialLabel     `json:"specialLabels"`
}

type contentPattern struct {
	Pattern    string `json:"pattern"`
	Confidence int    `json:"confidence"`
}

type classificationRule struct {
	RuleID             string           `json:"ruleId"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	TargetLabelID      string           `json:"targetLabelId"`
	Enabled            bool             `json:"enabled"`
	SensitiveInfoTypes []string         `json:"sensitiveInfoTypes"`
	ContentPatterns    []contentPattern `json:"contentPatterns"`
	MinimumConfidence  int              `json:"minimumConfidence"`
	MinimumCount       int              `json:"minimumCount"`
}

type classificationRules struct {
	ClientName  string               `json:"clientName"`
	GeneratedAt string               `json:"generatedAt"`
	Rules       []classificationRule `json:"rules"`
}

type glossaryTerm struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Category   string `json:"category"`
	Status     string `json:"status"`
}

type glossaryTerms struct {
	ClientName  string         `json:"clientName"`
	GeneratedAt string         `json:"generatedAt"`
	Terms       []glossaryTerm `json:"terms"`
}

var governanceTerms = []glossaryTerm{
	{"Data Owner", "Individual accountable for data quality and access decisions for a specific dataset.", "Governance Roles", "Approved"},
	{"Data Steward", "Individual responsible for day-to-day data quality management and metadata maintenance.", "Governance Roles", "Approved"},
	{"Data Custodian", "Technical role responsible for infrastructure and security of data storage and access.", "Governance Roles", "Approved"},
	{"Medallion Architecture", "Data lakehouse pattern with Bronze (raw), Silver (cleansed), and Gold (curated) layers.", "Architecture Patterns", "Approved"},
	{"Data Lineage", "The tracking of data origin, movement, transformation, and usage across the data lifecycle.", "Metadata", "Approved"},
	{"Data Quality Score", "Composite metric measuring completeness, accuracy, consistency, timeliness, and validity of a dataset.", "Data Quality", "Approved"},
}

// Transform builds sensitivity-labels.json, classification-rules.json,
// glossary-terms.json and the deployment guide.
func (p *Purview) Transform(_ unit.Templates, _ values.Map) (*unit.Result, error) {
	cfg := p.Config()
	settings := p.AdapterConfig()
	tiers := cfg.Strings("classification.tierLabels")
	if len(tiers) == 0 {
		tiers = defaultTierLabels
	}
	prefix := stringOr(settings, "labelPrefix", cfg.String("naming.orgPrefix"))
	autoClassify := boolOr(settings, "autoClassification", true)
	generatedAt := p.Now().UTC().Format(timeLayout)
	client := cfg.String("clientName")

	labels := make([]sensitivityLabel, len(tiers))
	for i, tier := range tiers {
		labels[i] = p.label(tier, i, len(tiers), prefix, autoClassify)
	}
	special := p.specialLabels(settings, labels, prefix)
	sens := sensitivityLabels{
		ClientName:    client,
		GeneratedAt:   generatedAt,
		TotalLabels:   len(labels) + len(special),
		Labels:        labels,
		SpecialLabels: special,
	}

	rules := make([]classificationRule, len(tiers))
	for i, tier := range tiers {
		rules[i] = classificationRule{
			RuleID:             "rule-" + slug(tier),
			Name:               "Auto-classify " + tier,
			Description:        fmt.Sprintf("Automatically classify content as %s based on sensitive information types", tier),
			TargetLabelID:      labels[i].ID,
			Enabled:            autoClassify,
			SensitiveInfoTypes: infoTypesFor(i),
			ContentPatterns:    patternsFor(tier, i),
			MinimumConfidence:  pick(i >= 2, 85, 75),
			MinimumCount:       pick(i >= 3, 1, 3),
		}
	}
	ruleDoc := classificationRules{ClientName: client, GeneratedAt: generatedAt, Rules: rules}

	terms := make([]glossaryTerm, 0, len(tiers)+len(governanceTerms))
	for i, tier := range tiers {
		terms = append(terms, glossaryTerm{Name: tier, Definition: tierDescription(tier, i, len(tiers)), Category: "Data Classification", Status: "Approved"})
	}
	terms = append(terms, governanceTerms...)
	glossary := glossaryTerms{ClientName: client, GeneratedAt: generatedAt, Terms: terms}

	res := &unit.Result{Docs: []unit.File{}, Scripts: []unit.File{}}
	for _, out := range []struct {
		name string
		doc  any
	}{
		{"sensitivity-labels.json", sens},
		{"classification-rules.json", ruleDoc},
		{"glossary-terms.json", glossary},
	} {
		f, err := jsonFile(out.name, out.doc)
		if err != nil {
			return nil, err
		}
		res.Configs = append(res.Configs, f)
	}

	guide, err := renderAsset("purview-guide.md", map[string]any{
		"clientName":    client,
		"date":          dateOf(p),
		"totalLabels":   sens.TotalLabels,
		"labels":        sens.Labels,
		"specialLabels": sens.SpecialLabels,
		"rules":         ruleDoc.Rules,
	})
	if err != nil {
		return nil, err
	}
	res.Docs = append(res.Docs, unit.File{Name: "purview-deployment-guide.md", Content: guide, Type: "markdown"})
	return p.Record(res), nil
}

// GenerateScripts returns the PowerShell deployment script.
func (p *Purview) GenerateScripts(*unit.Result) ([]unit.File, error) {
	cfg := p.Config()
	script, err := renderAsset("Deploy-PurviewPolicies.ps1", map[string]any{
		"clientName": cfg.String("clientName"),
		"prefix":     stringOr(cfg.Sub("naming"), "orgPrefix", "org"),
	})
	if err != nil {
		return nil, err
	}
	return p.RecordScripts([]unit.File{{Name: "Deploy-PurviewPolicies.ps1", Content: script, Type: "powershell"}}), nil
}

func (p *Purview) label(tier string, i, total int, prefix string, autoClassify bool) sensitivityLabel {
	id := slug(tier)
	display := tier
	if prefix != "" {
		id = prefix + "-" + id
		display = strings.ToUpper(prefix) + " - " + tier
	}
	prot := protectionSettings{EncryptionEnabled: i >= 2, AccessRestrictions: "none"}
	offline := -1
	if i >= 3 {
		prot.AccessRestrictions = "restrictToOrganization"
		offline = 7
	}
	prot.OfflineAccessDays = &offline

	var subs []sublabel
	if i >= 2 {
		lower := strings.ToLower(tier)
		subs = []sublabel{
			{ID: prefix + "-" + lower + "-all-employees", DisplayName: "All Employees", Description: tier + " - accessible to all employees"},
			{ID: prefix + "-" + lower + "-specific-people", DisplayName: "Specific People", Description: tier + " - restricted to named individuals"},
		}
	} else {
		subs = []sublabel{}
	}

	color := labelColors[len(labelColors)-1]
	if i < len(labelColors) {
		color = labelColors[i]
	}
	return sensitivityLabel{
		ID:                  id,
		DisplayName:         display,
		Description:         tierDescription(tier, i, total),
		Tooltip:             fmt.Sprintf("Classification tier %d of %d: %s", i+1, total, tier),
		Order:               i,
		Color:               color,
		IsActive:            true,
		Markings:            labelMarkings{HeaderEnabled: i >= 2, FooterEnabled: i >= 2, WatermarkEnabled: i >= 3},
		ProtectionSettings:  prot,
		AutoLabelingEnabled: autoClassify && i >= 1,
		Sublabels:           subs,
	}
}

func (p *Purview) specialLabels(settings values.Map, labels []sensitivityLabel, prefix string) []specialLabel {
	out := []specialLabel{}
	last := labels[len(labels)-1].ID
	upper := strings.ToUpper(prefix)
	if boolOr(settings, "itarLabelsEnabled", false) {
		zero := 0
		out = append(out, specialLabel{
			ID: prefix + "-itar-controlled", DisplayName: upper + " - ITAR Controlled", ParentID: last,
			Description:        "ITAR/EAR controlled technical data",
			ProtectionSettings: protectionSettings{EncryptionEnabled: true, AccessRestrictions: "usPersonsOnly", OfflineAccessDays: &zero},
		})
	}
	if boolOr(settings, "pciLabelsEnabled", false) {
		parent := labels[max(0, len(labels)-2)].ID
		out = append(out, specialLabel{
			ID: prefix + "-pci-cardholder", DisplayName: upper + " - PCI Cardholder", ParentID: parent,
			Description:        "PCI-DSS cardholder data",
			ProtectionSettings: protectionSettings{EncryptionEnabled: true, AccessRestrictions: "restrictToOrganization"},
		})
	}
	if boolOr(settings, "hipaaLabelsEnabled", false) {
		out = append(out, specialLabel{
			ID: prefix + "-phi", DisplayName: upper + " - PHI", ParentID: last,
			Description:        "Protected Health Information under HIPAA",
			ProtectionSettings: protectionSettings{EncryptionEnabled: true, AccessRestrictions: "restrictToOrganization", AuditEnabled: true},
		})
	}
	return out
}

func tierDescription(tier string, i, total int) string {
	if d, ok := tierDescriptions[tier]; ok {
		return d
	}
	return fmt.Sprintf("Classification tier %d of %d.", i+1, total)
}

// infoTypesFor returns the sensitive information types scanned for tier i:
// none for the lowest tier, then 2+i types drawn from a tier-widening pool.
func infoTypesFor(i int) []string {
	if i < 1 {
		return []string{}
	}
	pool := 3
	if i >= 2 {
		pool = 5
	}
	if i >= 3 {
		pool = 7
	}
	n := min(2+i, pool)
	return append([]string(nil), sensitiveInfoTypes[:n]...)
}

func patternsFor(tier string, i int) []contentPattern {
	if i < 1 {
		return []contentPattern{}
	}
	return []contentPattern{
		{Pattern: `CONFIDENTIALITY:\s*` + tier, Confidence: 90},
		{Pattern: `Classification:\s*` + tier, Confidence: 85},
	}
}

func pick(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
