package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/govgen/internal/values"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
	outputTOML = "toml"
)

func checkOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported output %q (expected one of: %s)", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeDocument encodes a configuration document. TOML has no null, so nil
// values are dropped for it.
func writeDocument(w io.Writer, doc values.Map, format string) error {
	switch format {
	case outputJSON:
		return writeJSON(w, doc)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(doc)); err != nil {
			return err
		}
		return enc.Close()
	case outputTOML:
		return toml.NewEncoder(w).Encode(map[string]any(values.Compact(doc)))
	}
	return fmt.Errorf("unsupported document format %q", format)
}
