// Package timeconv provides pure unit conversions used to derive token
// lifetimes.
package timeconv

import "time"

// MinutesToSeconds converts minutes to seconds.
func MinutesToSeconds(minutes int64) int64 {
	return minutes * 60
}

// HoursToSeconds converts hours to seconds.
func HoursToSeconds(hours int64) int64 {
	return hours * 3600
}

// DaysToSeconds converts days to seconds.
func DaysToSeconds(days int64) int64 {
	return days * 24 * 3600
}

// Token lifetimes, in seconds.
var (
	VerificationTokenExpireSeconds = MinutesToSeconds(15)
	RefreshTokenExpireSeconds      = DaysToSeconds(7)
)

// Token lifetimes as durations, for config defaults.
var (
	VerificationTokenTTL = time.Duration(VerificationTokenExpireSeconds) * time.Second
	RefreshTokenTTL      = time.Duration(RefreshTokenExpireSeconds) * time.Second
)
