// Package structure provides project structure rules: per-layer naming
// patterns and directory placement.
package structure
