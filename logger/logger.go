package logger

import (
	loggergo "github.com/Alonza0314/logger-go/v2"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

// newLogger writes to stdout when no file path is configured.
func newLogger(level loggergoUtil.LogLevelString, filePath string, debugMode bool) *loggergo.Logger {
	if filePath == "" {
		debugMode = true
	}
	logger := loggergo.NewLogger(filePath, debugMode)
	logger.SetLevel(level)
	return logger
}
