package utils

import (
	"math"
	"strings"
)

// WordsPerMinute is the reading speed used for readTime.
const WordsPerMinute = 200

// ReadTime estimates reading time in whole minutes: ceil(words / 200).
// Words are whitespace-separated tokens; blank text reads in 0 minutes.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	return int(math.Ceil(float64(words) / WordsPerMinute))
}
