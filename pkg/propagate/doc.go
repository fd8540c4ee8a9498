// Package propagate plans downstream inheritance of column documentation.
//
// Columns without documentation inherit it from the upstream columns their
// lineage names. Nodes are visited in topological order and upstream values
// are read from the plan being built, so multi-hop chains resolve in one pass.
// When upstream candidates disagree the planner records a conflict and
// leaves the column alone.
package propagate
