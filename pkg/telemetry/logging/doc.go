// Package logging configures the process-wide log/slog logger.
//
// Records are encoded as JSON or text. A ReplaceAttr hook masks any
// attribute whose name looks like a credential and scrubs bearer tokens
// from string values, so the upstream API token can never be written to a
// log sink. Request IDs placed in the context by the request ID middleware
// are attached to every record logged with a *Context method.
//
//	logger, err := logging.Setup(cfg.Telemetry.Logging)
//	logger.InfoContext(ctx, "cache hit", "key", key.String())
package logging
