// Package performance provides materialization rules: long chains of views
// and exposures that read from views.
package performance
