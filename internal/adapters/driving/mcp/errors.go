// Package mcp provides an MCP (Model Context Protocol) server adapter for Exegete.
// It enables AI assistants like Claude to ask grounded questions of the document library.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
