package record

import "time"

// Timestamps travel as a signed 64-bit value: the low 62 bits count 100ns
// ticks since 0001-01-01T00:00:00 and the top two bits carry the kind.
// Local timestamps store UTC ticks. Producers may wrap a local time near
// year 1 into the top day of the tick space; decoding undoes that.
const (
	ticksPerSecond = int64(10_000_000)
	nanosPerTick   = int64(100)
	ticksPerDay    = 864_000_000_000

	// unixEpochTicks is 1970-01-01T00:00:00Z in ticks.
	unixEpochTicks = int64(621_355_968_000_000_000)
	// maxTicks is 9999-12-31T23:59:59.9999999.
	maxTicks = int64(3_155_378_975_999_999_999)

	minUnix = -unixEpochTicks / ticksPerSecond
	maxUnix = (maxTicks - unixEpochTicks) / ticksPerSecond

	ticksMask    = int64(0x3FFFFFFFFFFFFFFF)
	ticksCeiling = int64(0x4000000000000000)
	kindShift    = 62
)

// TimeKind is the kind carried in the top two bits of an encoded timestamp.
type TimeKind uint8

const (
	KindUnspecified TimeKind = 0
	KindUTC         TimeKind = 1
	KindLocal       TimeKind = 2
	// KindLocalAmbiguous marks a local time inside a DST overlap. Decoded as local.
	KindLocalAmbiguous TimeKind = 3
)

// EncodeTime converts t into its wire form. Times in time.Local keep the
// local kind; every other location is written as UTC. Values outside the
// representable range are clamped.
func EncodeTime(t time.Time) int64 {
	ticks := ticksOf(t)
	if t.Location() != time.Local || time.Local == time.UTC {
		return withKind(ticks, KindUTC)
	}
	return withKind(ticks, KindLocal)
}

// DecodeTime is the inverse of EncodeTime.
func DecodeTime(v int64) time.Time {
	kind := TimeKind(uint64(v) >> kindShift)
	ticks := v & ticksMask
	switch kind {
	case KindLocal, KindLocalAmbiguous:
		if ticks > ticksCeiling-ticksPerDay {
			ticks -= ticksCeiling
		}
		return fromTicks(ticks).In(time.Local)
	default:
		return fromTicks(ticks).UTC()
	}
}

// KindOf returns the kind bits of an encoded timestamp.
func KindOf(v int64) TimeKind {
	return TimeKind(uint64(v) >> kindShift)
}

func withKind(ticks int64, k TimeKind) int64 {
	return int64(uint64(ticks) | uint64(k)<<kindShift)
}

func ticksOf(t time.Time) int64 {
	sec := t.Unix()
	switch {
	case sec < minUnix:
		return 0
	case sec > maxUnix:
		return maxTicks
	}
	return unixEpochTicks + sec*ticksPerSecond + int64(t.Nanosecond())/nanosPerTick
}

func fromTicks(ticks int64) time.Time {
	d := ticks - unixEpochTicks
	sec := d / ticksPerSecond
	rem := d % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*nanosPerTick)
}
