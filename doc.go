// Package backend provides the Ripple API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Credentials, refresh sessions and challenge flows
// - internal/engagement: Cached per-post engagement counters and ratings
// - internal/events: In-process comment lifecycle event bus
// - internal/database: Database connection and migrations
// - internal/cache: Redis client wrapper
// - internal/mail: Transactional mail (SES)
// - internal/middleware: HTTP middleware (rate limiting, metrics, etc.)

// See the individual package documentation for detailed API reference.
package backend
