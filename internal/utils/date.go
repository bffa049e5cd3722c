// internal/utils/date.go
package utils

import (
	"time"
)

const ISOFormat = "2006-01-02T15:04:05Z"

// UnixMillis is the millisecond epoch stored in createdAt/lastCheckedAt.
func UnixMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOFormat)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
