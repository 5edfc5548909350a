package template

import (
	"math/rand"
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/govgen/internal/values"
)

func testConfig() values.Map {
	return values.FromAny(map[string]any{
		"clientName": "Acme Corp",
		"industry":   "financial-services",
		"naming": map[string]any{
			"orgPrefix": "acme",
			"separator": "_",
		},
		"classification": map[string]any{
			"tierCount":            5,
			"tierLabels":           []any{"Public", "Internal"},
			"regulatoryFrameworks": []any{"SOX", "PCI-DSS"},
		},
		"adapters": map[string]any{
			"enabled": []any{},
			"endpoints": []any{
				map[string]any{"name": "primary hook", "url": "https://a.example", "retries": 3},
				map[string]any{"name": "backup", "url": "https://b.example", "retries": 1},
			},
		},
		"domains": []any{
			map[string]any{"code": "fin", "layers": []any{"brz", "slv"}},
			map[string]any{"code": "hr", "layers": []any{"gld"}},
		},
		"overlays": map[string]any{"sox": true, "pci": false},
	})
}

func TestExpand_LoopIndex(t *testing.T) {
	e := New()
	got := e.Expand("{{#each classification.tierLabels}}{{.}}:{{@index}}\n{{/each}}", testConfig())
	assert.Equal(t, "Public:0\nInternal:1\n", got)
}

func TestExpand_ConditionalElse(t *testing.T) {
	e := New()
	doc := "{{#if classification.tierCount >= 4}}deep{{else}}shallow{{/if}}"

	cfg := testConfig()
	assert.Equal(t, "deep", e.Expand(doc, cfg))

	cfg.Set("classification.tierCount", 3)
	assert.Equal(t, "shallow", e.Expand(doc, cfg))
}

func TestExpand_Substitution(t *testing.T) {
	e := New()
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"plain path", "Client: {{clientName}}", "Client: Acme Corp"},
		{"missing path", "[{{naming.missing}}]", "[]"},
		{"sequence joined", "{{classification.regulatoryFrameworks}}", "SOX, PCI-DSS"},
		{"number", "{{classification.tierCount}}", "5"},
		{"filters chain", "{{clientName | kebab | upper}}", "ACME-CORP"},
		{"unknown filter", "{{clientName | shout}}", "Acme Corp"},
		{"title", "{{industry | title}}", "Financial-Services"},
		{"snake", "{{industry | snake}}", "financial_services"},
		{"trim", "{{ clientName | trim }}", "Acme Corp"},
		{"filter on sequence", "{{classification.tierLabels | lower}}", "public, internal"},
		{"dot outside loop", "[{{.}}]", "[]"},
		{"at reference outside loop", "{{@index}}", "{{@index}}"},
		{"empty tag", "{{}}", "{{}}"},
		{"no markup", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(tt.doc, testConfig()))
		})
	}
}

func TestExpand_LoopFlags(t *testing.T) {
	e := New()
	got := e.Expand("{{#each classification.tierLabels}}{{.}}={{@first}}/{{@last}};{{/each}}", testConfig())
	assert.Equal(t, "Public=true/false;Internal=false/true;", got)
}

func TestExpand_LoopCompositeFields(t *testing.T) {
	e := New()
	doc := "{{#each adapters.endpoints}}{{name | kebab}} -> {{url}} x{{retries}} for {{clientName}}\n{{/each}}[{{name}}]"
	got := e.Expand(doc, testConfig())
	assert.Equal(t, "primary-hook -> https://a.example x3 for Acme Corp\nbackup -> https://b.example x1 for Acme Corp\n[]", got)
}

func TestExpand_NestedLoops(t *testing.T) {
	e := New()
	doc := "{{#each domains}}{{code}}:{{#each layers}}{{code}}_{{.}}{{#unless @last}},{{/unless}}{{/each}};{{/each}}"
	got := e.Expand(doc, testConfig())
	assert.Equal(t, "fin:fin_brz,fin_slv;hr:hr_gld;", got)
}

func TestExpand_LoopLocalsInConditions(t *testing.T) {
	e := New()
	doc := "{{#each adapters.endpoints}}{{#if retries > 1}}{{name}} retries{{else}}{{name}} once{{/if}}|{{/each}}"
	got := e.Expand(doc, testConfig())
	assert.Equal(t, "primary hook retries|backup once|", got)
}

func TestExpand_LoopOverNonSequence(t *testing.T) {
	e := New()
	assert.Equal(t, "ab", e.Expand("a{{#each clientName}}x{{/each}}b", testConfig()))
	assert.Equal(t, "ab", e.Expand("a{{#each nothing}}x{{/each}}b", testConfig()))
}

func TestExpand_Unless(t *testing.T) {
	e := New()
	assert.Equal(t, "no pci", e.Expand("{{#unless overlays.pci}}no pci{{/unless}}", testConfig()))
	assert.Equal(t, "", e.Expand("{{#unless overlays.sox}}no sox{{/unless}}", testConfig()))
	assert.Equal(t, "sox", e.Expand("{{#unless overlays.sox}}no sox{{else}}sox{{/unless}}", testConfig()))
}

func TestExpand_NestedConditionals(t *testing.T) {
	e := New()
	doc := "{{#if overlays.sox}}A{{#if overlays.pci}}B{{else}}C{{/if}}D{{else}}E{{/if}}"
	assert.Equal(t, "ACD", e.Expand(doc, testConfig()))
}

func TestExpand_MalformedMarkupLeftVerbatim(t *testing.T) {
	e := New()
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unclosed if", "{{#if overlays.sox}}kept {{clientName}}", "{{#if overlays.sox}}kept Acme Corp"},
		{"stray close", "x{{/if}}y", "x{{/if}}y"},
		{"unclosed each", "{{#each classification.tierLabels}}{{.}}", "{{#each classification.tierLabels}}"},
		{"stray else", "a{{else}}b", "a{{else}}b"},
		{"mismatched close", "{{#if overlays.sox}}x{{/unless}}", "{{#if overlays.sox}}x{{/unless}}"},
		{"inner pair still expands", "{{#each domains}}{{#each classification.tierLabels}}{{.}}{{/each}}", "{{#each domains}}PublicInternal"},
		{"unknown block", "{{#with naming}}x{{/with}}", "{{#with naming}}x{{/with}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(tt.doc, testConfig()))
		})
	}
}

func TestExpand_Idempotent(t *testing.T) {
	e := New()
	cfg := testConfig()
	doc := "# {{clientName}}\n{{#each classification.tierLabels}}- {{.}}\n{{/each}}{{#if overlays.sox}}SOX{{/if}}"

	once := e.Expand(doc, cfg)
	assert.Equal(t, once, e.Expand(once, cfg))
}

func TestExpand_ValuesAreNotReparsed(t *testing.T) {
	e := New()
	cfg := values.FromAny(map[string]any{
		"clientName": "Acme",
		"secret":     "S3CR3T",
		"plain":      "{{secret}}",
		"items":      []any{"{{secret}}", "{{#if clientName}}X{{/if}}", "{", "}"},
		"rows":       []any{map[string]any{"label": "{{clientName}}"}},
	})

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"top-level value", "{{plain}}", "{{secret}}"},
		{"loop items", "{{#each items}}[{{.}}]{{/each}}", "[{{secret}}][{{#if clientName}}X{{/if}}][{][}]"},
		{"loop item fields", "{{#each rows}}{{label}};{{/each}}", "{{clientName}};"},
		{"braces joined across items", "{{#each items}}{{.}}{{/each}}", "{{secret}}{{#if clientName}}X{{/if}}{}"},
		{"filtered loop item", "{{#each items}}{{. | upper}} {{/each}}", "{{SECRET}} {{#IF CLIENTNAME}}X{{/IF}} { } "},
		{"escape marker round trips", "a\uE000b{{#each rows}}\uE0000{{/each}}", "a\uE000b\uE0000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(tt.doc, cfg))
		})
	}
}

func TestRegisterFilter(t *testing.T) {
	e := New()
	e.RegisterFilter("reverse", func(s string) string {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	})
	assert.Equal(t, "emca", e.Expand("{{naming.orgPrefix | reverse}}", testConfig()))

	other := New()
	assert.Equal(t, "acme", other.Expand("{{naming.orgPrefix | reverse}}", testConfig()))
}

func TestSafeExpand_FilterPanic(t *testing.T) {
	e := New()
	e.RegisterFilter("boom", func(string) string { panic("boom") })

	_, err := e.SafeExpand("{{clientName | boom}}", testConfig())
	require.ErrorIs(t, err, ErrExpansionFailed)

	out, err := e.SafeExpand("{{clientName}}", testConfig())
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", out)
}

func TestEvaluateCondition(t *testing.T) {
	e := New()
	cfg := testConfig()
	tests := []struct {
		expr string
		want bool
	}{
		{"overlays.sox", true},
		{"overlays.pci", false},
		{"overlays.missing", false},
		{"adapters.enabled", false},
		{"classification.tierLabels", true},
		{"clientName", true},
		{"naming.separator === \"_\"", true},
		{"naming.separator !== '_'", false},
		{"classification.tierCount === 5", true},
		{"classification.tierCount > 4", true},
		{"classification.tierCount < 4", false},
		{"classification.tierCount <= 5", true},
		{"classification.regulatoryFrameworks includes \"SOX\"", true},
		{"classification.regulatoryFrameworks includes \"HIPAA\"", false},
		{"clientName includes \"Corp\"", true},
		{"overlays.sox && overlays.pci", false},
		{"overlays.sox && clientName", true},
		{"overlays.pci || overlays.sox", true},
		{"overlays.pci || overlays.missing", false},
		{"clientName > 3", false},
		{"true", true},
		{"false", false},
		{"0", false},
		{"'x'", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EvaluateCondition(tt.expr, cfg))
		})
	}
}

func TestExtractPlaceholders(t *testing.T) {
	doc := "{{clientName}} {{#if overlays.sox}}{{naming.orgPrefix | upper}}{{else}}{{clientName}}{{/if}}" +
		"{{#each classification.tierLabels}}{{.}}{{@index}}{{/each}}{{industry}}"
	assert.Equal(t, []string{"clientName", "naming.orgPrefix", "industry"}, ExtractPlaceholders(doc))
	assert.Empty(t, ExtractPlaceholders("no markup"))
}

func TestValidate(t *testing.T) {
	e := New()
	cfg := testConfig()
	cfg.Set("naming.empty", "")
	cfg.Set("naming.null", nil)

	v := e.Validate("{{clientName}} {{naming.empty}} {{naming.null}} {{naming.gone}} {{classification.tierCount}}", cfg)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"naming.empty", "naming.null", "naming.gone"}, v.Missing)

	v = e.Validate("{{clientName}}", cfg)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Missing)
}

func TestExpand_FuzzNoPanicAndIdempotentOnPlainText(t *testing.T) {
	e := New()
	cfg := testConfig()
	markup := []string{
		"{{", "}}", "{{#each ", "{{/each}}", "{{#if ", "{{/if}}", "{{else}}",
		"{{#unless ", "{{/unless}}", "{{.}}", "{{@index}}", "clientName", " | upper",
		"classification.tierLabels", " >= ", " includes ", "\"x\"", "\n",
	}
	f := fuzz.New().RandSource(rand.NewSource(7)).NilChance(0).Funcs(func(s *string, c fuzz.Continue) {
		var sb strings.Builder
		n := c.Intn(12)
		for i := 0; i < n; i++ {
			if c.RandBool() {
				sb.WriteString(markup[c.Intn(len(markup))])
			} else {
				sb.WriteString(c.RandString())
			}
		}
		*s = sb.String()
	})

	for i := 0; i < 500; i++ {
		var doc string
		f.Fuzz(&doc)
		out := e.Expand(doc, cfg)
		if !strings.Contains(out, "{{") {
			assert.Equal(t, out, e.Expand(out, cfg), "doc %q", doc)
		}
	}
}
