// Package manifest reads and writes the project interchange document.
//
// A manifest carries nodes, edges, column lineage and docs blocks. JSON and
// YAML are both accepted; JSON is read through the YAML decoder.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned for documents that cannot be turned into a graph input.
var ErrInvalidManifest = errors.New("invalid manifest")

// Document is the on-disk manifest shape.
type Document struct {
	Version    int            `yaml:"version,omitempty" json:"version,omitempty"`
	Project    string         `yaml:"project,omitempty" json:"project,omitempty"`
	Nodes      []NodeDoc      `yaml:"nodes" json:"nodes"`
	Edges      []EdgeDoc      `yaml:"edges,omitempty" json:"edges,omitempty"`
	Lineage    []LineageDoc   `yaml:"lineage,omitempty" json:"lineage,omitempty"`
	DocsBlocks []DocsBlockDoc `yaml:"docs_blocks,omitempty" json:"docs_blocks,omitempty"`
}

// NodeDoc describes one node.
type NodeDoc struct {
	Name             string         `yaml:"name" json:"name"`
	Kind             string         `yaml:"kind" json:"kind"`
	Layer            string         `yaml:"layer,omitempty" json:"layer,omitempty"`
	Materialized     string         `yaml:"materialized,omitempty" json:"materialized,omitempty"`
	Description      string         `yaml:"description,omitempty" json:"description,omitempty"`
	FilePath         string         `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	PatchPath        string         `yaml:"patch_path,omitempty" json:"patch_path,omitempty"`
	Tags             []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Access           string         `yaml:"access,omitempty" json:"access,omitempty"`
	ContractEnforced bool           `yaml:"contract_enforced,omitempty" json:"contract_enforced,omitempty"`
	Freshness        *FreshnessDoc  `yaml:"freshness,omitempty" json:"freshness,omitempty"`
	DependsOn        []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Columns          []ColumnDoc    `yaml:"columns,omitempty" json:"columns,omitempty"`
	Tests            []TestDoc      `yaml:"tests,omitempty" json:"tests,omitempty"`
	Meta             map[string]any `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// ColumnDoc describes one column. Lineage may be given inline or in the
// top-level lineage list.
type ColumnDoc struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	DocsRef     string       `yaml:"docs_ref,omitempty" json:"docs_ref,omitempty"`
	DataType    string       `yaml:"data_type,omitempty" json:"data_type,omitempty"`
	Lineage     []LineageDoc `yaml:"lineage,omitempty" json:"lineage,omitempty"`
}

// TestDoc describes a data test.
type TestDoc struct {
	Name   string `yaml:"name" json:"name"`
	Kind   string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
}

// FreshnessDoc holds source freshness thresholds.
type FreshnessDoc struct {
	WarnAfter     string `yaml:"warn_after,omitempty" json:"warn_after,omitempty"`
	ErrorAfter    string `yaml:"error_after,omitempty" json:"error_after,omitempty"`
	LoadedAtField string `yaml:"loaded_at_field,omitempty" json:"loaded_at_field,omitempty"`
}

// EdgeDoc is a child to parent reference.
type EdgeDoc struct {
	Child   string `yaml:"child" json:"child"`
	Parent  string `yaml:"parent" json:"parent"`
	Kind    string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Ordinal *int   `yaml:"ordinal,omitempty" json:"ordinal,omitempty"`
}

// LineageDoc maps a column to one upstream column. Node and Column are
// omitted when the link is declared inline on a column.
type LineageDoc struct {
	Node           string `yaml:"node,omitempty" json:"node,omitempty"`
	Column         string `yaml:"column,omitempty" json:"column,omitempty"`
	UpstreamNode   string `yaml:"upstream_node" json:"upstream_node"`
	UpstreamColumn string `yaml:"upstream_column" json:"upstream_column"`
	Relation       string `yaml:"relation,omitempty" json:"relation,omitempty"`
}

// DocsBlockDoc is a named docs block.
type DocsBlockDoc struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// Load reads a manifest file.
func Load(path string) (graph.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return graph.Input{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	in, err := Decode(bytes.NewReader(data))
	if err != nil {
		return graph.Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// Decode reads a manifest document and converts it to a graph input.
func Decode(r io.Reader) (graph.Input, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return graph.Input{}, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return graph.Input{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return doc.ToInput()
}

// ToInput converts the document into a graph input.
//
// Unknown kinds, relations and test kinds are rejected here. Reference
// problems (unknown parents, dangling lineage) are left to graph.Build so they
// are reported together.
func (d *Document) ToInput() (graph.Input, error) {
	var in graph.Input
	var problems []string

	kinds := make(map[string]core.NodeKind, len(d.Nodes))
	colIndex := make(map[core.ColumnRef][2]int)

	for ni, nd := range d.Nodes {
		n, errs := nd.toNode()
		problems = append(problems, errs...)
		kinds[n.Name] = n.Kind
		for ci, c := range n.Columns {
			colIndex[core.ColumnRef{Node: n.Name, Column: c.Name}] = [2]int{ni, ci}
		}
		in.Nodes = append(in.Nodes, n)
	}

	for _, nd := range d.Nodes {
		for i, parent := range nd.DependsOn {
			in.Edges = append(in.Edges, core.Edge{
				Child:   nd.Name,
				Parent:  parent,
				Kind:    refKind("", kinds[parent]),
				Ordinal: i,
			})
		}
	}
	ordinals := make(map[string]int)
	for _, ed := range d.Edges {
		kind := refKind(ed.Kind, kinds[ed.Parent])
		if kind == "" {
			problems = append(problems, fmt.Sprintf("edge %s -> %s: unknown kind %q", ed.Child, ed.Parent, ed.Kind))
			continue
		}
		ord := ordinals[ed.Child]
		if ed.Ordinal != nil {
			ord = *ed.Ordinal
		}
		ordinals[ed.Child] = ord + 1
		in.Edges = append(in.Edges, core.Edge{Child: ed.Child, Parent: ed.Parent, Kind: kind, Ordinal: ord})
	}

	for _, ld := range d.Lineage {
		pos, ok := colIndex[core.ColumnRef{Node: ld.Node, Column: ld.Column}]
		if !ok {
			problems = append(problems, fmt.Sprintf("lineage for unknown column %s.%s", ld.Node, ld.Column))
			continue
		}
		link, err := ld.toLink()
		if err != nil {
			problems = append(problems, fmt.Sprintf("lineage for %s.%s: %v", ld.Node, ld.Column, err))
			continue
		}
		col := &in.Nodes[pos[0]].Columns[pos[1]]
		col.Lineage = append(col.Lineage, link)
	}

	for _, bd := range d.DocsBlocks {
		in.DocsBlocks = append(in.DocsBlocks, core.DocsBlock{Name: bd.Name, Text: bd.Text})
	}

	if len(problems) > 0 {
		return graph.Input{}, fmt.Errorf("%w:\n  %s", ErrInvalidManifest, strings.Join(problems, "\n  "))
	}
	return in, nil
}

func (nd NodeDoc) toNode() (core.Node, []string) {
	var problems []string
	kind, ok := core.ParseNodeKind(nd.Kind)
	if !ok {
		problems = append(problems, fmt.Sprintf("node %q: unknown kind %q", nd.Name, nd.Kind))
	}
	if nd.Name == "" {
		problems = append(problems, "node without a name")
	}

	n := core.Node{
		Name:             nd.Name,
		Kind:             kind,
		Materialized:     nd.Materialized,
		Description:      nd.Description,
		FilePath:         nd.FilePath,
		PatchPath:        nd.PatchPath,
		Tags:             nd.Tags,
		Access:           core.Access(strings.ToLower(nd.Access)),
		ContractEnforced: nd.ContractEnforced,
		Meta:             nd.Meta,
	}
	if nd.Layer != "" {
		n.Layer = core.ParseLayer(nd.Layer)
	}
	if nd.Freshness != nil {
		n.Freshness = &core.Freshness{
			WarnAfter:     nd.Freshness.WarnAfter,
			ErrorAfter:    nd.Freshness.ErrorAfter,
			LoadedAtField: nd.Freshness.LoadedAtField,
		}
	}

	for _, cd := range nd.Columns {
		col := core.Column{
			Name:        cd.Name,
			Description: cd.Description,
			DocsRef:     cd.DocsRef,
			DataType:    cd.DataType,
		}
		for _, ld := range cd.Lineage {
			link, err := ld.toLink()
			if err != nil {
				problems = append(problems, fmt.Sprintf("lineage for %s.%s: %v", nd.Name, cd.Name, err))
				continue
			}
			col.Lineage = append(col.Lineage, link)
		}
		n.Columns = append(n.Columns, col)
	}

	for _, td := range nd.Tests {
		n.Tests = append(n.Tests, core.Test{Name: td.Name, Kind: testKind(td.Kind, td.Name), Column: td.Column})
	}
	return n, problems
}

func (ld LineageDoc) toLink() (core.LineageLink, error) {
	rel, ok := core.ParseRelationKind(ld.Relation)
	if !ok {
		return core.LineageLink{}, fmt.Errorf("unknown relation %q", ld.Relation)
	}
	return core.LineageLink{Node: ld.UpstreamNode, Column: ld.UpstreamColumn, Relation: rel}, nil
}

// refKind returns the edge kind, defaulting by the parent's node kind.
func refKind(declared string, parentKind core.NodeKind) core.RefKind {
	switch strings.ToLower(declared) {
	case "ref", "model":
		return core.RefModel
	case "source":
		return core.RefSource
	case "":
		if parentKind == core.KindSource {
			return core.RefSource
		}
		return core.RefModel
	default:
		return ""
	}
}

// testKind classifies a test by its declared kind, falling back to its name.
func testKind(kind, name string) core.TestKind {
	key := strings.ToLower(kind)
	if key == "" {
		key = strings.ToLower(name)
	}
	switch {
	case key == "unique":
		return core.TestUnique
	case key == "not_null":
		return core.TestNotNull
	case key == "primary_key", strings.HasSuffix(key, "unique_combination_of_columns"):
		return core.TestPrimaryKey
	case key == "relationships":
		return core.TestRelationships
	case key == "accepted_values":
		return core.TestAcceptedValues
	default:
		return core.TestOther
	}
}

// FromInput converts a graph input back into a document. Lineage is written
// inline on each column and edges as depends_on lists in ordinal order.
func FromInput(in graph.Input) *Document {
	doc := &Document{Version: 1}

	parents := make(map[string][]core.Edge)
	for _, e := range in.Edges {
		parents[e.Child] = append(parents[e.Child], e)
	}

	for _, n := range in.Nodes {
		nd := NodeDoc{
			Name:             n.Name,
			Kind:             string(n.Kind),
			Layer:            string(n.Layer),
			Materialized:     n.Materialized,
			Description:      n.Description,
			FilePath:         n.FilePath,
			PatchPath:        n.PatchPath,
			Tags:             n.Tags,
			Access:           string(n.Access),
			ContractEnforced: n.ContractEnforced,
			Meta:             n.Meta,
		}
		if n.Freshness != nil {
			nd.Freshness = &FreshnessDoc{
				WarnAfter:     n.Freshness.WarnAfter,
				ErrorAfter:    n.Freshness.ErrorAfter,
				LoadedAtField: n.Freshness.LoadedAtField,
			}
		}
		edges := parents[n.Name]
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Ordinal < edges[j].Ordinal })
		for _, e := range edges {
			nd.DependsOn = append(nd.DependsOn, e.Parent)
		}
		for _, c := range n.Columns {
			cd := ColumnDoc{Name: c.Name, Description: c.Description, DocsRef: c.DocsRef, DataType: c.DataType}
			for _, l := range c.Lineage {
				cd.Lineage = append(cd.Lineage, LineageDoc{
					UpstreamNode:   l.Node,
					UpstreamColumn: l.Column,
					Relation:       string(l.Relation),
				})
			}
			nd.Columns = append(nd.Columns, cd)
		}
		for _, t := range n.Tests {
			nd.Tests = append(nd.Tests, TestDoc{Name: t.Name, Kind: string(t.Kind), Column: t.Column})
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, b := range in.DocsBlocks {
		doc.DocsBlocks = append(doc.DocsBlocks, DocsBlockDoc{Name: b.Name, Text: b.Text})
	}
	return doc
}
