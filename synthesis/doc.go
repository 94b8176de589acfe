// Package synthesis builds grounded prompts and turns model completions into
// answers with a confidence estimate.
//
// The prompt instructs the model to answer only from the supplied context and
// to say so when the context lacks the answer. Up to two prior turns of
// conversation are included, oldest first, with earlier answers shortened.
//
// Confidence for knowledge base answers is the best retrieval score. Web
// answers get a fixed value per provider:
//
//	serper      0.80
//	wikipedia   0.75
//	duckduckgo  0.70
//	(other)     0.60
//
// When the model fails, times out or returns nothing, the top context snippet
// is returned as-is with confidence 0 and Success false.
package synthesis
