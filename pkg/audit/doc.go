// Package audit records security-relevant console events: logins, logouts,
// session validation and revocation, access denials and role changes.
//
//	logger, err := audit.NewFileLogger(audit.DefaultFileLoggerConfig())
//	logger.LogAuthentication(ctx, audit.EventTypeAuthLogin, actor, audit.EventStatusSuccess, "login")
//
// FileLogger writes JSON lines with size based rotation, StructuredLogger
// mirrors events into the application log and MultiLogger fans out to both.
// FromContext falls back to a no-op logger.
package audit
