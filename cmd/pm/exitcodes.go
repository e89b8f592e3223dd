package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no repository, invalid config)
	ExitDataError   = 3 // Data error (not found, malformed input)
	ExitImportError = 4 // Import finished without importing any DOI
)
