//go:generate mockgen -package=mocks -destination=../../mocks/mock_logger.go github.com/webstation/webstation/pkg/logging Logger

package logging

// Logger is the structured, key-value logger every component receives.
// Keeping it an interface lets tests swap in a silent or mocked logger.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}
