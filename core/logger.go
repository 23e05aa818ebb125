package core

// Logger is the process-wide diagnostic emitter. Failures that cannot be
// surfaced to the triggering request (background sends, settlement write
// rejections) are reported here for later display.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
