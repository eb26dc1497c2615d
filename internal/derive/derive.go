// Package derive computes the presentation attributes that are never
// stored: user rank, estimated reading time and human relative time.
// Everything here is a pure function of its arguments.
package derive

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const wordsPerMinute = 200

// Rank labels, highest first.
const (
	RankRoot      = "ROOT_USER"
	RankLegendary = "LEGENDARY_ROOT"
	RankOperative = "CYBER_OPERATIVE"
	RankKiddie    = "SCRIPT_KIDDIE"
)

// Rank maps admin status and authored-post volume to a status label.
// Thresholds are inclusive lower bounds.
func Rank(isAdmin bool, postCount int) string {
	switch {
	case isAdmin:
		return RankRoot
	case postCount >= 15:
		return RankLegendary
	case postCount >= 5:
		return RankOperative
	default:
		return RankKiddie
	}
}

// ReadingTime estimates minutes to read content at 200 words per
// minute. Ties at exact half minutes round up (math.Round is
// half-away-from-zero); the result is clamped to a minimum of 1.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Round(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// RelativeTime renders t against now. Buckets are half-open on their
// lower bound: exactly 60s is "1 minutes ago", exactly 24h is
// "yesterday". Days come from integer division of whole hours by 24.
func RelativeTime(t, now time.Time) string {
	seconds := int64(now.Sub(t).Seconds())
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case seconds < 60:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case days == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
