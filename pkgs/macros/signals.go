package macros

import "strings"

// DefaultTrapSignals is the signal list used by trap cleanup when the macro
// does not name any signals.
var DefaultTrapSignals = []string{"EXIT", "ERR", "INT", "TERM"}

// posixSignals is the set of signal names accepted by trap cleanup. EXIT and
// ERR are bash trap conditions rather than POSIX signals but are valid trap
// targets and included here.
var posixSignals = map[string]bool{
	"EXIT": true, "ERR": true, "DEBUG": true, "RETURN": true,
	"HUP": true, "INT": true, "QUIT": true, "ILL": true, "TRAP": true,
	"ABRT": true, "BUS": true, "FPE": true, "KILL": true, "USR1": true,
	"SEGV": true, "USR2": true, "PIPE": true, "ALRM": true, "TERM": true,
	"CHLD": true, "CONT": true, "STOP": true, "TSTP": true, "TTIN": true,
	"TTOU": true, "URG": true, "XCPU": true, "XFSZ": true, "VTALRM": true,
	"PROF": true, "WINCH": true, "IO": true, "PWR": true, "SYS": true,
}

// IsValidSignal reports whether name is an accepted trap signal name.
// Matching is case-insensitive, like macro detection itself.
func IsValidSignal(name string) bool {
	return posixSignals[strings.ToUpper(name)]
}
