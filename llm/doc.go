// Package llm provides thin HTTP clients for the model endpoints the core
// depends on: chat completion, embedding, and rerank scoring. All three speak
// widely implemented API shapes so any compatible hosted or local endpoint
// can serve them.
package llm
