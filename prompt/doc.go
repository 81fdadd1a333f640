// Package prompt assembles the system prompt through a pipeline of neurons.
//
// A neuron contributes one concern to the prompt: a synchronously computed
// description plus a list of content items gathered concurrently. Oversized
// contributions are reranked against the task input so only the most
// relevant items survive; small contributions pass through verbatim. The
// assembled prompt is rendered as a template against the context so
// placeholders like {{ user_id }} resolve through the field resolution
// rules, then appended to the working state as a single system message.
// Augmentation is idempotent per working state: an existing system message
// short-circuits the pipeline.
package prompt
