package utils

// Listing constants
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)
