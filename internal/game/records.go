package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyberchess/server/internal/models"
)

// BuildPGN renders a finished move list with standard tag pairs so records
// replay in any PGN consumer.
func BuildPGN(whiteName, blackName string, movesSAN []string, result models.Result, method string, when time.Time) string {
	var b strings.Builder
	b.WriteString("[Event \"Cyberchess Online Game\"]\n")
	b.WriteString("[Site \"cyberchess\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", when.Year(), int(when.Month()), when.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(whiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(blackName)))
	if method != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(method)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(movesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(movesSAN[i])))
		if i+1 < len(movesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(movesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(string(result))
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
