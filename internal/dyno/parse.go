package dyno

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The sensor emits one ASCII frame per poll:
//
//	ts_now_us,ts_last_rev_us,rev_period_us
//
// Fields are comma-separated integers. Only the third field matters to the
// pipeline; the two device-clock timestamps are ignored because readings
// are stamped with the host arrival time. Firmware revisions may append
// extra fields, which are ignored.
const minFrameFields = 3

// ParseLine parses one serial frame into a RawSample stamped with the
// given arrival time. A frame whose period field is zero or negative is a
// valid "no revolution observed" sample. A structurally bad frame returns
// an error and must be counted, never fatal.
func ParseLine(arrival time.Time, line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) < minFrameFields {
		return RawSample{}, fmt.Errorf("frame has %d fields, want at least %d: %q", len(parts), minFrameFields, line)
	}

	period, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("bad period field %q: %w", parts[2], err)
	}

	s := RawSample{Time: arrival}
	if period > 0 {
		s.PeriodUS = float64(period)
		s.PeriodValid = true
	}
	return s, nil
}
