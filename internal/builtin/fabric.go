package builtin

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

var _ unit.Unit = (*Fabric)(nil)

var fabricInfo = unit.Info{
	ID:          "fabric",
	Name:        "Microsoft Fabric",
	Description: "Generates Fabric workspace naming, lakehouse structure, and pipeline catalogs with deployment scripts.",
	Modules:     []string{"ISL-03", "ISL-05"},
	Kind:        unit.KindBuiltIn,
}

var (
	defaultEnvCodes = []entry{{"dev", "d"}, {"test", "t"}, {"prod", "p"}}
	defaultDomains  = []entry{{"default", "gen"}}
	defaultLayers   = []string{"brz", "slv", "gld"}

	integrationPatterns = []string{
		"batch-ingest", "streaming-ingest", "api-mediated", "event-driven",
		"file-transfer", "cdc-replication", "pub-sub", "etl-transform",
	}

	layerNames = map[string]string{
		"brz": "Bronze (Raw)",
		"slv": "Silver (Cleansed)",
		"gld": "Gold (Curated)",
		"plt": "Platinum (Analytics)",
	}
	layerPurposes = map[string]string{
		"brz": "Raw data ingestion. Source-faithful copies with minimal transformation. Append-only pattern.",
		"slv": "Cleansed and conformed data. Data quality rules applied, standardized schemas, deduplication.",
		"gld": "Business-ready curated datasets. Star schemas, aggregates, KPIs, ready for consumption.",
		"plt": "Advanced analytics outputs. ML features, statistical models, executive dashboards.",
	}
)

// Fabric maps naming standards (ISL-03) and integration patterns (ISL-05)
// onto Fabric workspaces, lakehouse folders and pipeline names.
//
// Workspaces cover every environment code × domain prefix × lakehouse layer
// combination, named <orgPrefix><sep><env><sep><domain><sep><layer>.
type Fabric struct {
	*unit.Base
}

// NewFabric returns the Fabric unit for cfg.
func NewFabric(cfg values.Map) *Fabric {
	return &Fabric{Base: unit.NewBase(fabricInfo, cfg)}
}

// Validate requires naming.orgPrefix.
func (f *Fabric) Validate() unit.Validation {
	var errs []string
	if f.Config().String("naming.orgPrefix") == "" {
		errs = append(errs, "naming.orgPrefix is required")
	}
	return unit.Validations(errs)
}

type workspace struct {
	Name             string `json:"name"`
	Environment      string `json:"environment"`
	Domain           string `json:"domain"`
	DomainCode       string `json:"domainCode"`
	Layer            string `json:"layer"`
	LayerDescription string `json:"layerDescription"`
	Description      string `json:"description"`
}

type workspaceNaming struct {
	ClientName      string      `json:"clientName"`
	GeneratedAt     string      `json:"generatedAt"`
	Pattern         string      `json:"pattern"`
	TotalWorkspaces int         `json:"totalWorkspaces"`
	Workspaces      []workspace `json:"workspaces"`
}

type lakehouseFolder struct {
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Subfolders  []string `json:"subfolders"`
}

type lakehouseLayer struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Folders     []lakehouseFolder `json:"folders"`
	Description string            `json:"description"`
}

type lakehouseStructure struct {
	ClientName       string           `json:"clientName"`
	MedallionEnabled bool             `json:"medallionEnabled"`
	Layers           []lakehouseLayer `json:"layers"`
}

type pipeline struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

type pipelineNaming struct {
	ClientName       string     `json:"clientName"`
	GeneratedAt      string     `json:"generatedAt"`
	NamingConvention string     `json:"namingConvention"`
	TotalPipelines   int        `json:"totalPipelines"`
	Pipelines        []pipeline `json:"pipelines"`
}

// Transform builds workspace-naming.json, lakehouse-structure.json,
// pipeline-naming.json and the naming guide.
func (f *Fabric) Transform(_ unit.Templates, _ values.Map) (*unit.Result, error) {
	cfg := f.Config()
	settings := f.AdapterConfig()
	naming := cfg.Sub("naming")
	sep := stringOr(naming, "separator", "_")
	prefix := stringOr(naming, "orgPrefix", "org")
	envCodes := orderedEntries(cfg, "naming.envCodes", defaultEnvCodes)
	domains := orderedEntries(cfg, "naming.domainPrefixes", defaultDomains)
	layers := settings.Strings("lakehouseLayers")
	if len(layers) == 0 {
		layers = defaultLayers
	}
	client := cfg.String("clientName")
	generatedAt := f.Now().UTC().Format(timeLayout)

	var workspaces []workspace
	for _, env := range envCodes {
		for _, dom := range domains {
			for _, layer := range layers {
				workspaces = append(workspaces, workspace{
					Name:             strings.Join([]string{prefix, env.Code, dom.Code, layer}, sep),
					Environment:      env.Name,
					Domain:           dom.Name,
					DomainCode:       dom.Code,
					Layer:            layer,
					LayerDescription: layerName(layer),
					Description:      fmt.Sprintf("%s - %s %s (%s)", stringOr(cfg, "clientName", "Client"), dom.Name, layerName(layer), env.Name),
				})
			}
		}
	}
	wsDoc := workspaceNaming{
		ClientName:      client,
		GeneratedAt:     generatedAt,
		Pattern:         stringOr(settings, "workspacePattern", prefix+sep+"{envCode}"+sep+"{domain}"+sep+"{layer}"),
		TotalWorkspaces: len(workspaces),
		Workspaces:      workspaces,
	}

	lake := lakehouseStructure{
		ClientName:       client,
		MedallionEnabled: boolOr(settings, "medallionEnabled", true),
	}
	for _, layer := range layers {
		lake.Layers = append(lake.Layers, lakehouseLayer{
			Code:        layer,
			Name:        layerName(layer),
			Folders:     lakehouseFolders(layer, domains),
			Description: layerPurposes[layer],
		})
	}

	var pipelines []pipeline
	for _, dom := range domains {
		for _, pattern := range integrationPatterns {
			pipelines = append(pipelines, pipeline{
				Name:        "pl" + sep + dom.Code + sep + strings.ReplaceAll(pattern, "-", sep),
				Domain:      dom.Name,
				Pattern:     pattern,
				Description: dom.Name + " " + pattern + " pipeline",
			})
		}
	}
	plDoc := pipelineNaming{
		ClientName:       client,
		GeneratedAt:      generatedAt,
		NamingConvention: "pl" + sep + "{domain}" + sep + "{pattern}",
		TotalPipelines:   len(pipelines),
		Pipelines:        pipelines,
	}

	res := &unit.Result{Docs: []unit.File{}, Scripts: []unit.File{}}
	for _, out := range []struct {
		name string
		doc  any
	}{
		{"workspace-naming.json", wsDoc},
		{"lakehouse-structure.json", lake},
		{"pipeline-naming.json", plDoc},
	} {
		file, err := jsonFile(out.name, out.doc)
		if err != nil {
			return nil, err
		}
		res.Configs = append(res.Configs, file)
	}

	guide, err := renderAsset("fabric-guide.md", map[string]any{
		"clientName": client,
		"date":       dateOf(f),
		"naming":     map[string]any{"orgPrefix": prefix},
		"separator":  sep,
		"workspaces": wsDoc,
		"pipelines":  plDoc,
		"lakehouse":  lake,
		"envCodes":   envCodes,
		"domains":    domains,
	})
	if err != nil {
		return nil, err
	}
	res.Docs = append(res.Docs, unit.File{Name: "fabric-naming-guide.md", Content: guide, Type: "markdown"})
	return f.Record(res), nil
}

// GenerateScripts returns the Python workspace provisioning script.
func (f *Fabric) GenerateScripts(*unit.Result) ([]unit.File, error) {
	settings := f.AdapterConfig()
	script, err := renderAsset("provision_fabric.py", map[string]any{
		"clientName": f.Config().String("clientName"),
		"capacityId": stringOr(settings, "fabricCapacityId", "<FABRIC_CAPACITY_ID>"),
		"tenantId":   stringOr(settings, "tenantId", "<TENANT_ID>"),
	})
	if err != nil {
		return nil, err
	}
	return f.RecordScripts([]unit.File{{Name: "provision_fabric.py", Content: script, Type: "python"}}), nil
}

func layerName(code string) string {
	if n, ok := layerNames[code]; ok {
		return n
	}
	return code
}

func lakehouseFolders(layer string, domains []entry) []lakehouseFolder {
	var sub []string
	switch layer {
	case "brz":
		sub = []string{"/raw", "/staging", "/archive"}
	case "slv":
		sub = []string{"/current", "/historical"}
	default:
		sub = []string{"/dimensions", "/facts", "/aggregates"}
	}
	out := make([]lakehouseFolder, 0, len(domains))
	for _, d := range domains {
		out = append(out, lakehouseFolder{Path: "/" + d.Code, Description: d.Name + " domain data", Subfolders: sub})
	}
	return out
}
