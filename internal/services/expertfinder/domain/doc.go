// Package domain holds the request-scoped values of a people search: the
// caller's raw parameters, the filter built from them, and the candidates
// returned by each source.
package domain
