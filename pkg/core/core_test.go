package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in     string
		want   Severity
		wantOK bool
	}{
		{"error", SeverityError, true},
		{"ERROR", SeverityError, true},
		{"warn", SeverityWarning, true},
		{" info ", SeverityInfo, true},
		{"hint", SeverityHint, true},
		{"fatal", SeverityWarning, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSeverity(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, SeverityError.AtLeast(SeverityWarning))
	assert.True(t, SeverityWarning.AtLeast(SeverityWarning))
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
}

func TestSortFindings(t *testing.T) {
	findings := []Finding{
		{RuleID: "PM04", Node: "orders"},
		{RuleID: "DC03", Node: "customers", Column: "id"},
		{RuleID: "PM03", Node: "customers"},
		{RuleID: "DC01", Node: "customers"},
		{RuleID: "DC04"},
	}

	SortFindings(findings)

	got := make([]string, 0, len(findings))
	for _, f := range findings {
		got = append(got, f.RuleID+"@"+f.Target())
	}
	assert.Equal(t, []string{
		"DC04@<project>",
		"DC01@customers",
		"PM03@customers",
		"DC03@customers.id",
		"PM04@orders",
	}, got)
}

func TestHasBlocking(t *testing.T) {
	findings := []Finding{{Severity: SeverityWarning}, {Severity: SeverityInfo}}

	assert.False(t, HasBlocking(findings, SeverityError))
	assert.True(t, HasBlocking(findings, SeverityWarning))
	assert.Equal(t, 1, CountBySeverity(findings)[SeverityInfo])
}

func TestParseRelationKind(t *testing.T) {
	tests := []struct {
		in   string
		want RelationKind
		ok   bool
	}{
		{"passthrough", RelationPassthrough, true},
		{"", RelationPassthrough, true},
		{"rename", RelationRenamed, true},
		{"EXPR", RelationTransformed, true},
		{"joined", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRelationKind(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestNode_Column(t *testing.T) {
	n := &Node{Name: "orders", Columns: []Column{{Name: "id"}, {Name: "amount", DocsRef: "amount_doc"}}}

	col, ok := n.Column("amount")
	assert.True(t, ok)
	assert.True(t, col.HasDescription())
	assert.Equal(t, 1, n.ColumnIndex("amount"))
	assert.Equal(t, -1, n.ColumnIndex("missing"))

	_, ok = n.Column("missing")
	assert.False(t, ok)
}

func TestEditKind_IsStructural(t *testing.T) {
	assert.True(t, EditRemoveColumn.IsStructural())
	assert.True(t, EditRemoveNode.IsStructural())
	assert.False(t, EditSetDescription.IsStructural())
	assert.False(t, EditKind("rename").IsValid())
}
