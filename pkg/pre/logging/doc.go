// Package logging provides the logging facade used across the re-encryption
// roles.
//
// The Logger interface wraps a subset of log/slog so applications can plug in
// their own implementation for testing, redaction or an existing logging
// system:
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// New binds to a *slog.Logger, NewFromConfig builds one from a level and a
// format name, and FromLogrus adapts a *logrus.Logger for deployments that
// already standardise on logrus. Discard drops everything and is the default
// in tests.
//
// # Security Considerations
//
//   - Never log secret keys, key fragments, plaintexts or DEM keys
//   - Use Redacted to mark attributes that were intentionally removed
//   - HRACs, node ids and public keys are safe to log and are logged hex
//     encoded
package logging
