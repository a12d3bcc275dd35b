package assistant

import "strings"

// Intent is the action a question asks for.
type Intent string

const (
	IntentBoostRAM Intent = "boost_ram"
	IntentOptimize Intent = "optimize"
	IntentClean    Intent = "clean_junk"
	IntentStatus   Intent = "status"
	IntentReport   Intent = "report"
	IntentUnknown  Intent = "unknown"
)

// ParseIntent classifies a command by keyword, first match wins:
// boost/optimize (RAM or system), clean/junk, status/health, report.
func ParseIntent(command string) Intent {
	c := strings.ToLower(command)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(c, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("boost", "optimize", "optimise"):
		if has("ram", "memory") {
			return IntentBoostRAM
		}
		return IntentOptimize
	case has("clean", "junk"):
		return IntentClean
	case has("status", "health"):
		return IntentStatus
	case has("report"):
		return IntentReport
	}
	return IntentUnknown
}
