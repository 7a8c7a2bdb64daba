// Package llm adapts an OpenAI-compatible API to the events.Embedder and
// events.Summarizer collaborators.
//
// Every remote call runs through a resilience.Executor. Query embeddings can
// be cached with NewCachedEmbedder; the cache key is derived from the model
// and the query text only.
package llm
