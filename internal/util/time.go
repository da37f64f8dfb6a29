package util

import (
	"fmt"
	"time"
)

// TimeProvider renders epoch timestamps in a configured timezone
type TimeProvider struct {
	location *time.Location
}

// NewTimeProvider loads timezone; "" and "Local" mean the system zone.
func NewTimeProvider(timezone string) (*TimeProvider, error) {
	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, Asia/Shanghai, Europe/London", timezone, err)
		}
		loc = l
	}
	return &TimeProvider{location: loc}, nil
}

func (tp *TimeProvider) Location() *time.Location {
	return tp.location
}

// FormatMillis formats an epoch millisecond timestamp. Zero renders as "-".
func (tp *TimeProvider) FormatMillis(ms int64, layout string) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).In(tp.location).Format(layout)
}
