package testkit

import (
	"fmt"
	"strings"
	"sync"
)

// RecordingLogger keeps every message for assertions
type RecordingLogger struct {
	mu     sync.Mutex
	Infos  []string
	Debugs []string
}

func (l *RecordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, fmt.Sprintf(format, args...))
}

func (l *RecordingLogger) Debug(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, fmt.Sprintf(format, args...))
}

// CountInfo counts info messages containing substr
func (l *RecordingLogger) CountInfo(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.Infos {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}
