// Package aggregates declares the imaging write boundaries (order gate,
// hierarchy ingestion, sign-off), their typed error codes and the failure
// reasons callers branch on.
package aggregates
