package requester

import "sync"

// Logger defines the logging surface the executor relies on. The silent
// paths mandated by the request contract (swallowed body marshal failures,
// unresolvable 200 bodies) are logged here and nowhere else.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

var (
	logMu sync.RWMutex
	log   Logger = noopLogger{}
)

// SetLogger installs a package logger; nil restores the no-op default.
func SetLogger(l Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		log = noopLogger{}
		return
	}
	log = l
}

func pkgLogger() Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}
