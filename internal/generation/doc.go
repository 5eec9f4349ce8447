// Package generation is the boundary between the application and external
// LLM services. Callers depend on the Completer interface; the Gemini and
// OpenRouter clients under internal/platform implement it.
package generation
