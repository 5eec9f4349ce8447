// Package gemini implements generation.Completer on top of the Google Gen AI
// SDK, using the Gemini Developer API backend.
package gemini
