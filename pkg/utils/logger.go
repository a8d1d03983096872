package utils

import "go.uber.org/zap"

// NewLogger builds the logger every shindan component receives. Debug mode
// switches to zap's development config (console encoder, debug level) for
// ward-side troubleshooting; the default is the production JSON logger.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
