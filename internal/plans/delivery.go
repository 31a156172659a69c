package plans

import (
	"strings"
	"time"
)

// Channel is how a finished export reaches the user.
type Channel string

const (
	ChannelDownload Channel = "download"
	ChannelEmail    Channel = "email"
)

// DeliveryChannel maps a plan code to its delivery channel. Paid tiers download
// directly; everything else, unknown codes included, is emailed.
func DeliveryChannel(planCode string) Channel {
	switch normalizeCode(planCode) {
	case CodePro, CodeBusiness, CodeTeam:
		return ChannelDownload
	default:
		return ChannelEmail
	}
}

// RetentionDays is how long a READY artifact stays downloadable.
func RetentionDays(planCode string) int {
	switch normalizeCode(planCode) {
	case CodePro:
		return 14
	case CodeBusiness, CodeTeam:
		return 30
	default:
		return 3
	}
}

// ExpiresAt returns the artifact expiry for planCode relative to now.
func ExpiresAt(planCode string, now time.Time) time.Time {
	return now.AddDate(0, 0, RetentionDays(planCode))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
