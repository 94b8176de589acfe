// Package server exposes an Assistant over HTTP with gin.
//
// Routes:
//
//	GET    /health
//	POST   /api/v1/query
//	POST   /api/v1/batch-query
//	GET    /api/v1/sessions
//	GET    /api/v1/sessions/:id
//	DELETE /api/v1/sessions/:id
//	POST   /api/v1/knowledge
//	POST   /api/v1/documents
package server
