package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/archive"
	"github.com/dusk-indust/govgen/internal/export"
)

type InspectOptions struct {
	*GovgenOptions

	ExtractDir string
	Mermaid    bool
	Manifest   bool
}

func NewInspectOptions(g *GovgenOptions) *InspectOptions {
	return &InspectOptions{GovgenOptions: g}
}

func NewInspectCmd(o *InspectOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "List, verify or unpack a generated archive",
		Args:  cobra.ExactArgs(1),
		RunE:  func(_ *cobra.Command, args []string) error { return o.Run(args[0]) },
	}
	cmd.Flags().StringVar(&o.ExtractDir, "extract", "", "Unpack the archive into this directory")
	cmd.Flags().BoolVar(&o.Mermaid, "mermaid", false, "Print the run as a Mermaid diagram")
	cmd.Flags().BoolVar(&o.Manifest, "manifest", false, "Print the run manifest")
	return cmd
}

func (o *InspectOptions) Run(archivePath string) error {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	files, err := archive.Read(data)
	if err != nil {
		return fmt.Errorf("%s: %w", archivePath, err)
	}
	manifest, err := findManifest(files)
	if err != nil {
		return err
	}

	switch {
	case o.Mermaid:
		if manifest == nil {
			return fmt.Errorf("%s has no %s", archivePath, archive.ManifestFile)
		}
		_, err = fmt.Fprint(o.out, export.GenerateMermaid(manifest))
		return err
	case o.Manifest:
		if manifest == nil {
			return fmt.Errorf("%s has no %s", archivePath, archive.ManifestFile)
		}
		out, err := export.ManifestJSON(manifest)
		if err != nil {
			return err
		}
		_, err = o.out.Write(out)
		return err
	}

	if o.ExtractDir != "" {
		written, err := export.UnpackFiles(files, o.ExtractDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.out, "extracted %d file(s) into %s\n", len(written.Files), written.Dir)
		return nil
	}

	if manifest != nil {
		fmt.Fprintf(o.out, "Run %s for %s, generated %s\n", manifest.RunID, manifest.ClientName, manifest.GeneratedAt)
	}
	tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t  %s\t\n", len(f.Data), f.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "%d file(s), checksums verified\n", len(files))
	return nil
}

// findManifest decodes the top-level manifest.json entry, or returns nil
// when the archive has none.
func findManifest(files []archive.File) (*archive.RunManifest, error) {
	for _, f := range files {
		if path.Base(f.Name) != archive.ManifestFile || path.Dir(path.Dir(f.Name)) != "." {
			continue
		}
		var m archive.RunManifest
		if err := json.Unmarshal(f.Data, &m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.Name, err)
		}
		return &m, nil
	}
	return nil, nil
}
