// Package summarize sends transcripts to a generative language model with a fixed instruction prompt.
package summarize
