package employees

const (
	ExitStatusActive = "Active"

	MaxCodeLength = 50
	MaxNameLength = 200

	DefaultListLimit = 50
	MaxListLimit     = 500
)
