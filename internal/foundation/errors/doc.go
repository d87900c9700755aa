// Package errors provides the classified error primitives shared by every jellsite package.
//
// A ClassifiedError carries a category (config, discovery, render, ...), a severity, a retry
// hint and free-form context. Domain packages define their own concrete error types and
// implement Categorized so adapters can classify them without a type switch over every package.
//
// Example usage:
//
//	err := errors.ConfigError("invalid permalink style").
//		WithContext("permalink", cfg.Permalink).
//		Build()
package errors
