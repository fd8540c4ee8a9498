// Package docs provides documentation rules.
//
//   - DC01: model without description
//   - DC02: source without description
//   - DC03: column without description, fixable when upstream documentation can be inherited
//   - DC04: project column documentation coverage below threshold
//   - DC05: model without tags
package docs
