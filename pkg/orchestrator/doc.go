// Package orchestrator wires the scan → fetch → resolve → materialize → bind
// pipeline into a single entry point that fills a parsed HTML document with
// content from the delivery API.
package orchestrator
