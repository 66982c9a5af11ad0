// Package logger provides the structured logging interface used across
// linkstash.
//
// It wraps zerolog. Console output is coloured and human readable, JSON
// output is one object per line, and an optional file always receives
// JSON. Logs go to stderr so that exports written to stdout stay clean.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("collection started", map[string]interface{}{
//	    "platform":   "tiktok",
//	    "collection": "alice_liked",
//	})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
