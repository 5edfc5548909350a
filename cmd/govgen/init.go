package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/values"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// govgenMCPEntry is the MCP server configuration for the govgen binary.
var govgenMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "govgen",
  "args": ["serve-mcp"]
}`)

const projectConfigTemplate = `# govgen project configuration. Relative paths resolve against this file's
# directory.
storePath: .govgen/config.json
outputDir: dist
historyDir: .govgen/history
# templateDir: templates   # <module-id>/<template> overrides
# profileDir: profiles     # extra industry profiles (yaml, json, toml)
# pluginDir: plugins       # declarative unit plugins
historyLimit: 20
logLevel: info
logFormat: text
scriptCheck: true
`

type InitOptions struct {
	*GovgenOptions

	Profile   string
	Client    string
	OrgPrefix string
	Adapters  []string
	Modules   []string
	Force     bool
	NoMCP     bool
}

func NewInitOptions(g *GovgenOptions) *InitOptions {
	return &InitOptions{GovgenOptions: g}
}

func NewInitCmd(o *InitOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create govgen.yml, a client configuration and the MCP server entry",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Profile, "profile", "p", "", "Industry profile to start from (see 'govgen profiles')")
	cmd.Flags().StringVar(&o.Client, "client", "", "Client organization name")
	cmd.Flags().StringVar(&o.OrgPrefix, "org-prefix", "", "Organization abbreviation used in names")
	cmd.Flags().StringSliceVar(&o.Adapters, "adapters", nil, "Platform units to enable (default: the profile's recommendations)")
	cmd.Flags().StringSliceVar(&o.Modules, "modules", nil, "Standards modules to select (default: the profile's recommendations)")
	cmd.Flags().BoolVar(&o.Force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&o.NoMCP, "no-mcp", false, "Skip the .mcp.json entry")
	return cmd
}

func (o *InitOptions) Run() error {
	p, err := o.loadProject()
	if err != nil {
		return err
	}

	// --- govgen.yml ---

	if err := o.writeProjectConfig(p.dir); err != nil {
		return err
	}

	// --- client configuration ---

	if err := o.writeClientConfig(p); err != nil {
		return err
	}

	// --- .mcp.json ---

	if !o.NoMCP {
		if err := o.mergeMCPConfig(p.dir, filepath.Join(p.dir, ".mcp.json")); err != nil {
			return err
		}
	}

	fmt.Fprintln(o.out, "\nSetup complete. Run 'govgen status' to check the configuration.")
	return nil
}

func (o *InitOptions) writeProjectConfig(dir string) error {
	path := filepath.Join(dir, "govgen.yml")
	if !o.Force {
		for _, name := range []string{"govgen.yml", "govgen.yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				fmt.Fprintf(o.out, "  skipped ./%s (exists, use --force to overwrite)\n", name)
				return nil
			}
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(projectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(o.out, "  created %s\n", dotRelative(dir, path))
	return nil
}

func (o *InitOptions) writeClientConfig(p *project) error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	if !st.IsFirstRun() && !o.Force {
		fmt.Fprintf(o.out, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(p.dir, st.Path()))
		return nil
	}

	client := values.Map{}
	if o.Client != "" {
		client.Set("clientName", o.Client)
	}
	if o.OrgPrefix != "" {
		client.Set("naming.orgPrefix", o.OrgPrefix)
	}

	var cfg values.Map
	if o.Profile != "" {
		res, err := p.resolver()
		if err != nil {
			return err
		}
		cfg, err = res.Resolve(o.Profile, client, nil)
		if err != nil {
			return err
		}
		cfg.Set("adapters.enabled", toAny(cfg.Strings("adapters.recommended")))
	} else {
		cfg = client
	}
	if len(o.Adapters) > 0 {
		cfg.Set("adapters.enabled", toAny(o.Adapters))
	}
	if len(o.Modules) > 0 {
		cfg.Set("modules.selected", toAny(o.Modules))
	}

	if err := st.Replace(cfg); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "  created %s\n", dotRelative(p.dir, st.Path()))
	return nil
}

// mergeMCPConfig creates or merges the govgen entry into .mcp.json.
func (o *InitOptions) mergeMCPConfig(dir, mcpPath string) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["govgen"]; exists && !o.Force {
		fmt.Fprintf(o.out, "  skipped .mcp.json govgen entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["govgen"] = govgenMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(o.out, "  %s %s with govgen MCP server\n", action, dotRelative(dir, mcpPath))
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
