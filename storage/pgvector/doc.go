// Package pgvector stores knowledge in Postgres using the pgvector extension
// through the lib/pq driver.
//
// Open creates the extension and table when missing. Vectors are passed in
// pgvector's text form and compared with cosine distance.
package pgvector
