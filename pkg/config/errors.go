package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrEnvFile is returned when an explicitly requested env file cannot be read
	ErrEnvFile = errors.New("failed to read env file")
)
