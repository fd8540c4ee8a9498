// Package datatests provides data test rules: project test coverage and
// primary key tests per model.
package datatests
