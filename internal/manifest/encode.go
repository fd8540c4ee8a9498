package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the encoding from a file extension. Anything that is
// not .json is written as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Encode writes v in the given format.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteFile encodes v to path, choosing the format from the extension.
func WriteFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, FormatForPath(path), v); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// IntentDocument is what the external writer consumes.
type IntentDocument struct {
	Version  int          `yaml:"version" json:"version"`
	Mode     string       `yaml:"mode" json:"mode"`
	Digest   string       `yaml:"digest" json:"digest"`
	Intents  []IntentDoc  `yaml:"intents" json:"intents"`
	Residual []FindingDoc `yaml:"residual,omitempty" json:"residual,omitempty"`
}

// IntentDoc is one edit intent.
type IntentDoc struct {
	Kind       string `yaml:"kind" json:"kind"`
	Node       string `yaml:"node" json:"node"`
	Column     string `yaml:"column,omitempty" json:"column,omitempty"`
	DocsBlock  string `yaml:"docs_block,omitempty" json:"docs_block,omitempty"`
	Text       string `yaml:"text,omitempty" json:"text,omitempty"`
	DocsRef    string `yaml:"docs_ref,omitempty" json:"docs_ref,omitempty"`
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	Provenance string `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	RuleID     string `yaml:"rule_id,omitempty" json:"rule_id,omitempty"`
}

// FindingDoc is a finding in document form.
type FindingDoc struct {
	RuleID   string   `yaml:"rule_id" json:"rule_id"`
	Severity string   `yaml:"severity" json:"severity"`
	Node     string   `yaml:"node,omitempty" json:"node,omitempty"`
	Column   string   `yaml:"column,omitempty" json:"column,omitempty"`
	Message  string   `yaml:"message" json:"message"`
	Related  []string `yaml:"related,omitempty" json:"related,omitempty"`
}

// NewIntentDocument builds the writer document for an applier result.
func NewIntentDocument(res fix.Result, mode fix.SafetyMode) *IntentDocument {
	doc := &IntentDocument{
		Version: 1,
		Mode:    string(mode),
		Digest:  res.Digest(),
		Intents: make([]IntentDoc, 0, len(res.Intents)),
	}
	for _, in := range res.Intents {
		d := IntentDoc{
			Kind:      string(in.Kind),
			Node:      in.Target.Node,
			Column:    in.Target.Column,
			DocsBlock: in.DocsBlock,
			Text:      in.Text,
			DocsRef:   in.DocsRef,
			FilePath:  in.FilePath,
			RuleID:    in.RuleID,
		}
		if in.Provenance != nil {
			d.Provenance = in.Provenance.String()
		}
		doc.Intents = append(doc.Intents, d)
	}
	doc.Residual = FindingDocs(res.Findings)
	return doc
}

// FindingDocs converts findings to their document form.
func FindingDocs(findings []core.Finding) []FindingDoc {
	if len(findings) == 0 {
		return nil
	}
	out := make([]FindingDoc, len(findings))
	for i, f := range findings {
		out[i] = FindingDoc{
			RuleID:   f.RuleID,
			Severity: f.Severity.String(),
			Node:     f.Node,
			Column:   f.Column,
			Message:  f.Message,
			Related:  f.Related,
		}
	}
	return out
}
