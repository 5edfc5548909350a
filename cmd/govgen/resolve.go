package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/govgen/internal/resolver"
	"github.com/dusk-indust/govgen/internal/store"
	"github.com/dusk-indust/govgen/internal/values"
)

var _ cobrautil.ResolvableFlag = (*setFlag)(nil)

// setFlag collects repeated path=value pairs. Values are parsed as YAML, so
// numbers, booleans and flow sequences keep their types.
type setFlag struct {
	raw []string
	doc values.Map
}

func (f *setFlag) String() string { return strings.Join(f.raw, ",") }

func (f *setFlag) Type() string { return "path=value" }

func (f *setFlag) Set(val string) error {
	f.raw = append(f.raw, val)
	return nil
}

// Resolve parses the collected pairs into a document.
func (f *setFlag) Resolve() error {
	doc := values.Map{}
	for _, kv := range f.raw {
		path, raw, ok := strings.Cut(kv, "=")
		if !ok || path == "" {
			return fmt.Errorf("expected path=value, got %q", kv)
		}
		v, err := parseValue(raw)
		if err != nil {
			return fmt.Errorf("parsing value for %s: %w", path, err)
		}
		doc.Set(path, v)
	}
	f.doc = doc
	return nil
}

func parseValue(raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return values.Normalize(v), nil
}

// readDocument decodes a JSON, YAML or TOML file chosen by extension.
func readDocument(path string) (values.Map, error) {
	format, err := store.ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return store.Decode(data, format)
}

type ResolveOptions struct {
	*GovgenOptions

	Profile      string
	ClientFile   string
	ArtifactFile string
	Set          setFlag
	Save         bool
	Output       string
}

func NewResolveOptions(g *GovgenOptions) *ResolveOptions {
	return &ResolveOptions{GovgenOptions: g}
}

func NewResolveCmd(o *ResolveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a configuration from a profile and client overrides",
		Long: `Resolve a configuration by layering client overrides, then artifact
overrides, over an industry profile baseline.

Examples:
  govgen resolve -p healthcare --set clientName="Acme Health" --set naming.orgPrefix=ACH
  govgen resolve -p manufacturing --client-file client.yaml --save`,
		RunE: func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Profile, "profile", "p", "", "Industry profile id (required)")
	cmd.Flags().StringVar(&o.ClientFile, "client-file", "", "Client overrides file (json, yaml or toml)")
	cmd.Flags().StringVar(&o.ArtifactFile, "artifact-file", "", "Artifact overrides file, layered last")
	cmd.Flags().Var(&o.Set, "set", "Client override as path=value (can be specified multiple times)")
	cmd.Flags().BoolVar(&o.Save, "save", false, "Replace the stored configuration with the result")
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputYAML, "Output format: yaml, json or toml")
	return cmd
}

func (o *ResolveOptions) Run() error {
	if err := checkOutput(o.Output, outputYAML, outputJSON, outputTOML); err != nil {
		return err
	}
	if o.Profile == "" {
		return fmt.Errorf("--profile is required")
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	res, err := p.resolver()
	if err != nil {
		return err
	}

	client := values.Map{}
	if o.ClientFile != "" {
		if client, err = readDocument(o.ClientFile); err != nil {
			return err
		}
	}
	client = values.DeepMerge(client, o.Set.doc)

	var artifact values.Map
	if o.ArtifactFile != "" {
		if artifact, err = readDocument(o.ArtifactFile); err != nil {
			return err
		}
	}

	cfg, err := res.Resolve(o.Profile, client, artifact)
	if err != nil {
		return err
	}

	if o.Save {
		st, err := p.openStore()
		if err != nil {
			return err
		}
		if err := st.Replace(cfg); err != nil {
			return err
		}
		p.logger.Info("configuration saved", "path", st.Path(), "profile", o.Profile)
	}
	return writeDocument(o.out, cfg, o.Output)
}

type DeltaOptions struct {
	*GovgenOptions

	Profile string
	Output  string
}

func NewDeltaOptions(g *GovgenOptions) *DeltaOptions {
	return &DeltaOptions{GovgenOptions: g}
}

func NewDeltaCmd(o *DeltaOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Show how the stored configuration differs from its profile",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Profile, "profile", "p", "", "Profile to compare against (default: the configured industry)")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "diff", "Output format: diff, paths, yaml or json")
	return cmd
}

func (o *DeltaOptions) Run() error {
	if err := checkOutput(o.Output, "diff", "paths", outputYAML, outputJSON); err != nil {
		return err
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	cfg := st.Snapshot()

	profileID := o.Profile
	if profileID == "" {
		profileID = cfg.String("industry")
	}
	if profileID == "" {
		return fmt.Errorf("no profile given and no industry configured")
	}
	res, err := p.resolver()
	if err != nil {
		return err
	}

	if o.Output == "diff" {
		diff, err := res.RenderDelta(profileID, cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(o.out, diff)
		return err
	}

	delta, err := res.Delta(profileID, cfg)
	if err != nil {
		return err
	}
	if o.Output == "paths" {
		for _, path := range resolver.DeltaPaths(delta) {
			fmt.Fprintln(o.out, path)
		}
		return nil
	}
	return writeDocument(o.out, delta, o.Output)
}
