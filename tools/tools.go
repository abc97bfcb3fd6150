//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// They are installed with `go install` and are not tracked in go.mod.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks/ports_mock.go via `go generate ./internal/mocks`
//   Install: go install go.uber.org/mock/mockgen@v0.6.0
//   Docs: https://github.com/uber-go/mock
//
// golangci-lint - honours the //nolint directives used across the tree
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
//   Docs: https://golangci-lint.run
//
// Air - live reload for cmd/connectedin-api during local development
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
