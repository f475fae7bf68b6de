// Package openai implements the provider adapter for OpenAI's public
// chat completions API (api.openai.com). It supports Bearer authentication,
// multimodal user messages via image_url content parts, and SSE streaming
// with the [DONE] sentinel.
package openai
