package core

// Logger is any leveled logger.
// args may hold errors, a map[string]interface{} of extras and the concerned child's ID (see ChildRef).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// ChildRef identifies the child a log entry is about.
type ChildRef struct {
	ID   string
	Name string
}
