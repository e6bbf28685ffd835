package services

import "time"

// Clock returns the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

// GetCurrentTimestamp returns the clock's reading in Unix milliseconds, the
// unit chats are stamped with.
func (c Clock) GetCurrentTimestamp() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}
