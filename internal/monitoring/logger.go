// Package monitoring holds the diagnostic loggers shared by the analysis
// packages. Library code never configures a logging backend itself; the
// command wires one in with SetLogger and SetWarnLogger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf reports conditions the user should see even when diagnostics are
// muted, such as a dropped trailing row or a fit that lost its weights.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("WARNING: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	Logf = orNoop(f)
}

// SetWarnLogger replaces the warning logger. Passing nil will set a no-op logger.
func SetWarnLogger(f func(format string, v ...interface{})) {
	Warnf = orNoop(f)
}

func orNoop(f func(format string, v ...interface{})) func(string, ...interface{}) {
	if f == nil {
		return func(string, ...interface{}) {}
	}
	return f
}
