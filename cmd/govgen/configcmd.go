package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/store"
	"github.com/dusk-indust/govgen/internal/values"
)

func NewConfigCmd(g *GovgenOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit the stored client configuration",
	}
	cmd.AddCommand(NewConfigGetCmd(&ConfigGetOptions{GovgenOptions: g}))
	cmd.AddCommand(NewConfigSetCmd(&ConfigSetOptions{GovgenOptions: g}))
	cmd.AddCommand(NewConfigExportCmd(&ConfigExportOptions{GovgenOptions: g}))
	cmd.AddCommand(NewConfigImportCmd(&ConfigImportOptions{GovgenOptions: g}))
	cmd.AddCommand(NewConfigResetCmd(&ConfigResetOptions{GovgenOptions: g}))
	return cmd
}

type ConfigGetOptions struct {
	*GovgenOptions

	Output string
}

func NewConfigGetCmd(o *ConfigGetOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [PATH]",
		Short: "Print the value at a dotted path, or the whole document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return o.Run(path)
		},
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputYAML, "Output format: yaml or json")
	return cmd
}

func (o *ConfigGetOptions) Run(path string) error {
	if err := checkOutput(o.Output, outputYAML, outputJSON); err != nil {
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
	if path == "" {
		return writeDocument(o.out, st.Snapshot(), o.Output)
	}

	v, ok := st.Snapshot().Lookup(path)
	if !ok {
		return fmt.Errorf("no value at %s", path)
	}
	if m, isMap := values.AsMap(v); isMap {
		return writeDocument(o.out, m, o.Output)
	}
	if s, isString := v.(string); isString {
		_, err = fmt.Fprintln(o.out, s)
		return err
	}
	return writeJSON(o.out, v)
}

type ConfigSetOptions struct {
	*GovgenOptions
}

func NewConfigSetCmd(o *ConfigSetOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set PATH VALUE",
		Short: "Set the value at a dotted path; VALUE is parsed as YAML",
		Args:  cobra.ExactArgs(2),
		RunE:  func(_ *cobra.Command, args []string) error { return o.Run(args[0], args[1]) },
	}
}

func (o *ConfigSetOptions) Run(path, raw string) error {
	v, err := parseValue(raw)
	if err != nil {
		return fmt.Errorf("parsing value for %s: %w", path, err)
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	return st.Set(path, v)
}

type ConfigExportOptions struct {
	*GovgenOptions

	Format string
	File   string
}

func NewConfigExportCmd(o *ConfigExportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored configuration as JSON, YAML or TOML",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Format, "format", "f", "", "json, yaml or toml (default: from --file extension, else json)")
	cmd.Flags().StringVar(&o.File, "file", "", "Write to this file instead of stdout")
	return cmd
}

func (o *ConfigExportOptions) Run() error {
	format, err := formatFor(o.Format, o.File)
	if err != nil {
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
	data, err := st.Export(format)
	if err != nil {
		return err
	}
	if o.File == "" {
		_, err = o.out.Write(data)
		return err
	}
	if err := os.WriteFile(o.File, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", o.File, err)
	}
	return nil
}

type ConfigImportOptions struct {
	*GovgenOptions

	Format string
}

func NewConfigImportCmd(o *ConfigImportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the stored configuration with a JSON, YAML or TOML file",
		Args:  cobra.ExactArgs(1),
		RunE:  func(_ *cobra.Command, args []string) error { return o.Run(args[0]) },
	}
	cmd.Flags().StringVarP(&o.Format, "format", "f", "", "json, yaml or toml (default: from the file extension)")
	return cmd
}

func (o *ConfigImportOptions) Run(file string) error {
	format, err := formatFor(o.Format, file)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	if err := st.Import(data, format); err != nil {
		return err
	}
	p.logger.Info("configuration imported", "from", file, "format", string(format))
	return nil
}

type ConfigResetOptions struct {
	*GovgenOptions
}

func NewConfigResetCmd(o *ConfigResetOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default configuration and remove the stored file",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
}

func (o *ConfigResetOptions) Run() error {
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	return st.Reset()
}

// formatFor picks an explicit format, else the file's extension, else JSON.
func formatFor(explicit, file string) (store.Format, error) {
	switch {
	case explicit != "":
		return store.ParseFormat(explicit)
	case file != "":
		return store.ParseFormat(filepath.Ext(file))
	}
	return store.FormatJSON, nil
}
