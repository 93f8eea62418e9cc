package core

// Logger is the application logger.
// args may hold errors, LogFields and at most one Actor (the user behind the logged event).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
