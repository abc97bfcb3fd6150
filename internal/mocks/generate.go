// Package mocks provides mock implementations for testing the church records service.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockChurchRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "id").Return(church, nil)
package mocks

// Generate mocks for the storage ports in internal/ports:
// ChurchRepository (Create, GetByID, List, Update) and CacheRepository (Set, Get, Delete, Health).
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/johnrichard23/connectedin/internal/ports ChurchRepository,CacheRepository
