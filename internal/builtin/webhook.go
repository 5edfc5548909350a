package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

var _ unit.Unit = (*Webhook)(nil)

var webhookInfo = unit.Info{
	ID:          "webhook",
	Name:        "REST / Webhook",
	Description: "Generates consolidated JSON payloads for delivery to any REST endpoint or webhook receiver.",
	Modules:     []string{"ISL-01", "ISL-02", "ISL-03", "ISL-04", "ISL-05", "ISL-06"},
	Kind:        unit.KindBuiltIn,
}

// Payload formats.
const (
	FormatFull    = "full"
	FormatSummary = "summary"
)

// exampleEndpoint fills the delivery scripts when no endpoint is configured.
var exampleEndpoint = endpoint{
	URL:        "https://example.com/webhook",
	AuthType:   "bearer",
	AuthValue:  "<TOKEN>",
	RetryCount: 3,
	TimeoutMs:  30000,
}

// Webhook consolidates the resolved configuration and the expanded module
// documents into one JSON payload, plus an endpoint manifest and delivery
// scripts. It covers every module, for platforms without a dedicated unit.
type Webhook struct {
	*unit.Base
}

// NewWebhook returns the webhook unit for cfg.
func NewWebhook(cfg values.Map) *Webhook {
	return &Webhook{Base: unit.NewBase(webhookInfo, cfg)}
}

type endpoint struct {
	URL        string `json:"url"`
	AuthType   string `json:"authType"`
	AuthValue  string `json:"authValue"`
	RetryCount int    `json:"retryCount"`
	TimeoutMs  int    `json:"timeoutMs"`
}

// endpoints reads adapters.config.webhook.endpoints with defaults applied.
func (w *Webhook) endpoints() []endpoint {
	raw, _ := values.AsSlice(w.AdapterConfig()["endpoints"])
	out := make([]endpoint, 0, len(raw))
	for _, r := range raw {
		m, _ := values.AsMap(r)
		out = append(out, endpoint{
			URL:        stringOr(m, "url", ""),
			AuthType:   stringOr(m, "authType", "none"),
			AuthValue:  stringOr(m, "authValue", ""),
			RetryCount: numberOr(m, "retryCount", 3),
			TimeoutMs:  numberOr(m, "timeoutMs", 30000),
		})
	}
	return out
}

// Validate requires a URL on every configured endpoint and a known payload
// format.
func (w *Webhook) Validate() unit.Validation {
	var errs []string
	for i, ep := range w.endpoints() {
		if ep.URL == "" {
			errs = append(errs, fmt.Sprintf("Endpoint %d: URL is required", i+1))
		}
	}
	switch f := stringOr(w.AdapterConfig(), "payloadFormat", FormatFull); f {
	case FormatFull, FormatSummary:
	default:
		errs = append(errs, fmt.Sprintf("payloadFormat must be %q or %q, got %q", FormatFull, FormatSummary, f))
	}
	return unit.Validations(errs)
}

type payloadMeta struct {
	Source      string `json:"source"`
	Version     string `json:"version"`
	GeneratedAt string `json:"generatedAt"`
	ClientName  string `json:"clientName"`
	Industry    string `json:"industry"`
	Format      string `json:"format"`
}

type payloadConfiguration struct {
	Environment    any `json:"environment"`
	Naming         any `json:"naming"`
	Classification any `json:"classification"`
	Modules        any `json:"modules"`
}

type standardsSummary struct {
	ModulesIncluded []string `json:"modulesIncluded"`
	TotalTemplates  int      `json:"totalTemplates"`
}

type payload struct {
	Meta          payloadMeta          `json:"meta"`
	Configuration payloadConfiguration `json:"configuration"`
	Standards     any                  `json:"standards"`
}

type endpointTarget struct {
	URL        string            `json:"url"`
	AuthType   string            `json:"authType"`
	RetryCount int               `json:"retryCount"`
	TimeoutMs  int               `json:"timeoutMs"`
	Headers    map[string]string `json:"headers"`
}

type webhookManifest struct {
	GeneratedAt      string           `json:"generatedAt"`
	ClientName       string           `json:"clientName"`
	Endpoints        []endpointTarget `json:"endpoints"`
	PayloadSizeBytes int              `json:"payloadSizeBytes"`
}

// Transform builds payload.json and webhook-manifest.json. In the full
// format the payload embeds each effective module's expanded documents, or
// only their lengths when includeTemplates is false; the summary format
// lists module ids and a template count.
func (w *Webhook) Transform(tpl unit.Templates, _ values.Map) (*unit.Result, error) {
	cfg := w.Config()
	settings := w.AdapterConfig()
	format := stringOr(settings, "payloadFormat", FormatFull)
	generatedAt := w.Now().UTC().Format(timeLayout)
	modules := effectiveModules(cfg)

	p := payload{
		Meta: payloadMeta{
			Source:      "govgen",
			Version:     stringOr(cfg.Sub("metadata"), "version", "1.0.0"),
			GeneratedAt: generatedAt,
			ClientName:  cfg.String("clientName"),
			Industry:    cfg.String("industry"),
			Format:      format,
		},
		Configuration: payloadConfiguration{
			Environment:    cfg.Get("environment"),
			Naming:         cfg.Get("naming"),
			Classification: cfg.Get("classification"),
			Modules:        cfg.Get("modules"),
		},
	}

	if format == FormatFull {
		include := boolOr(settings, "includeTemplates", true)
		standards := make(map[string]map[string]string)
		for _, id := range modules {
			docs, ok := tpl[id]
			if !ok {
				continue
			}
			standards[id] = make(map[string]string, len(docs))
			for name, content := range docs {
				if include {
					standards[id][name] = content
				} else {
					standards[id][name] = fmt.Sprintf("[%d characters]", len([]rune(content)))
				}
			}
		}
		p.Standards = standards
	} else {
		total := 0
		for _, docs := range tpl {
			total += len(docs)
		}
		p.Standards = standardsSummary{ModulesIncluded: modules, TotalTemplates: total}
	}

	compact, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload.json: %w", err)
	}

	eps := w.endpoints()
	targets := make([]endpointTarget, 0, len(eps))
	for _, ep := range eps {
		targets = append(targets, endpointTarget{
			URL:        ep.URL,
			AuthType:   ep.AuthType,
			RetryCount: ep.RetryCount,
			TimeoutMs:  ep.TimeoutMs,
			Headers:    authHeaders(ep),
		})
	}
	manifest := webhookManifest{
		GeneratedAt:      generatedAt,
		ClientName:       cfg.String("clientName"),
		Endpoints:        targets,
		PayloadSizeBytes: len(compact),
	}

	res := &unit.Result{Docs: []unit.File{}, Scripts: []unit.File{}}
	for _, out := range []struct {
		name string
		doc  any
	}{
		{"payload.json", p},
		{"webhook-manifest.json", manifest},
	} {
		f, err := jsonFile(out.name, out.doc)
		if err != nil {
			return nil, err
		}
		res.Configs = append(res.Configs, f)
	}
	return w.Record(res), nil
}

// GenerateScripts returns a TypeScript and a Bash delivery script. With no
// endpoints configured both carry an example endpoint to edit.
func (w *Webhook) GenerateScripts(*unit.Result) ([]unit.File, error) {
	eps := w.endpoints()
	if len(eps) == 0 {
		eps = []endpoint{exampleEndpoint}
	}
	data := map[string]any{
		"clientName": w.Config().String("clientName"),
		"endpoints":  eps,
	}
	var files []unit.File
	for _, s := range []struct{ name, typ string }{
		{"deliver-webhook.ts", "typescript"},
		{"deploy-webhook.sh", "bash"},
	} {
		content, err := renderAsset(s.name, data)
		if err != nil {
			return nil, err
		}
		files = append(files, unit.File{Name: s.name, Content: content, Type: s.typ})
	}
	return w.RecordScripts(files), nil
}

func authHeaders(ep endpoint) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	switch ep.AuthType {
	case "bearer":
		h["Authorization"] = "Bearer " + valueOr(ep.AuthValue, "<TOKEN>")
	case "api-key":
		h["X-API-Key"] = valueOr(ep.AuthValue, "<API_KEY>")
	}
	return h
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// effectiveModules returns modules.selected, or modules.recommended when
// nothing is selected.
func effectiveModules(cfg values.Map) []string {
	mods := cfg.Strings("modules.selected")
	if len(mods) == 0 {
		mods = cfg.Strings("modules.recommended")
	}
	if mods == nil {
		return []string{}
	}
	return mods
}
