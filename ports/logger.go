package ports

// Logger accepts leveled, printf-style messages
type Logger interface {
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Debug(string, ...interface{}) {}
