package importer

import (
	"math/rand/v2"
	"strconv"
)

// maxRandomAttempts bounds the numeric-suffix search after the letters run out.
const maxRandomAttempts = 100

// UniqueCiteKey returns base if unused, otherwise base followed by the first
// free letter a..z. When all 26 are taken it falls back to a random
// three-digit suffix.
func UniqueCiteKey(base string, exists func(string) bool) string {
	if !exists(base) {
		return base
	}
	for c := 'a'; c <= 'z'; c++ {
		key := base + string(c)
		if !exists(key) {
			return key
		}
	}
	var key string
	for i := 0; i < maxRandomAttempts; i++ {
		key = base + strconv.Itoa(100+rand.IntN(900))
		if !exists(key) {
			break
		}
	}
	return key
}
