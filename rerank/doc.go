// Package rerank orders evidence fragments by query relevance using a
// pairwise scoring model.
//
// Raw model scores are mapped through a sigmoid so thresholds are always
// interpreted on a fixed 0-1 confidence scale regardless of the model's raw
// range. When the model is unavailable the reranker degrades to a neutral
// pass-through: every fragment scores 0.5 and input order is preserved.
package rerank
