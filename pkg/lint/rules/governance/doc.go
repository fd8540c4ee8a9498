// Package governance provides governance rules for public models and sources.
//
//   - GV01: public model without an enforced contract
//   - GV02: public model without description
//   - GV03: source without freshness
package governance
