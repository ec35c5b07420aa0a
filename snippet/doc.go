// Package snippet holds the read-only registry of example programs.
//
// A [Store] is built once, typically at process start with [LoadFS], and is never
// mutated afterwards. Readers may share it freely across goroutines without
// locking. Every [Snippet] is annotated at load time by package annotate, so the
// display source and annotations are fixed for the lifetime of the store.
package snippet
