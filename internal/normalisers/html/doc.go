// Package html extracts the visible text of an HTML page for chunking.
// Script and style bodies are dropped and entities are decoded.
package html
