package nortek

import (
	"fmt"
	"time"
)

// The instrument clock is six packed BCD bytes in the order
// minute, second, day, hour, year, month. Years are offset from 2000.
const (
	clockMinute = iota
	clockSecond
	clockDay
	clockHour
	clockYear
	clockMonth
	clockLen
)

func bcdByte(b byte) (int, bool) {
	tens, ones := int(b>>4), int(b&0x0F)
	if tens > 9 || ones > 9 {
		return 0, false
	}
	return tens*10 + ones, true
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | v%10)
}

// DecodeClock converts a packed BCD clock to UTC.
func DecodeClock(b []byte) (time.Time, error) {
	if len(b) < clockLen {
		return time.Time{}, fmt.Errorf("%w: clock needs %d bytes, got %d", ErrInvalidTimestamp, clockLen, len(b))
	}
	var v [clockLen]int
	for i := 0; i < clockLen; i++ {
		d, ok := bcdByte(b[i])
		if !ok {
			return time.Time{}, fmt.Errorf("%w: byte %d (0x%02X) is not BCD", ErrInvalidTimestamp, i, b[i])
		}
		v[i] = d
	}
	year, month, day := 2000+v[clockYear], v[clockMonth], v[clockDay]
	hour, minute, second := v[clockHour], v[clockMinute], v[clockSecond]
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d", ErrInvalidTimestamp, year, month, day, hour, minute, second)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar date", ErrInvalidTimestamp, year, month, day)
	}
	return t, nil
}

// EncodeClock packs t (UTC, years 2000-2099) into the instrument clock layout.
func EncodeClock(t time.Time) ([clockLen]byte, error) {
	var out [clockLen]byte
	t = t.UTC()
	if t.Year() < 2000 || t.Year() > 2099 {
		return out, fmt.Errorf("%w: year %d outside 2000-2099", ErrInvalidTimestamp, t.Year())
	}
	out[clockMinute] = toBCD(t.Minute())
	out[clockSecond] = toBCD(t.Second())
	out[clockDay] = toBCD(t.Day())
	out[clockHour] = toBCD(t.Hour())
	out[clockYear] = toBCD(t.Year() - 2000)
	out[clockMonth] = toBCD(int(t.Month()))
	return out, nil
}
