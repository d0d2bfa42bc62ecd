// Package rag assembles model context from the knowledge tiers.
//
// Retrieval is two-tiered: vector similarity search first, the keyword
// FAQ index when vectors cannot serve (no database, no embedder, a
// search failure, or nothing indexed). The two tiers are deliberately
// asymmetric: an empty vector result set falls back to keywords, but a
// result set that exists and merely fails the similarity thresholds
// does not. The thresholds express "we looked, nothing was relevant" —
// falling back would resurface the same irrelevant entries with a
// weaker metric.
//
// # Degradation
//
// [Retriever.Retrieve] never returns an error. Collaborator failures
// are logged and the result degrades, eventually to the zero [Result];
// the chat pipeline treats missing context as an answerable state, not
// a failure.
//
// # Context format
//
// Matched FAQ entries render as
//
//	Q: <question>
//
//	A: <answer>
//
// and other documents as
//
//	Source: <title>
//	Content: <content>
//
// with blocks joined by "\n\n---\n\n". Source labels and the
// de-duplicated category list travel alongside the context for the
// prompt builder and the category endpoints.
package rag
