// Package modeling provides project-level modeling rules.
//
// These rules analyze the DAG structure and model relationships:
//
//   - PM01: Root Models - Non-staging models with no parents (broken DAG lineage)
//   - PM02: Source Fanout - Source referenced by >1 non-staging model
//   - PM03: Layering - Model references a model in its own layer when the layer forbids it
//   - PM04: Model Fanout - Model with more direct children than the threshold
//   - PM06: Downstream on Source - Marts/intermediate depends directly on source
//   - PM07: Rejoining Upstream - Two parents of a model share an ancestor within a bounded depth
package modeling
