package slack

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidTimestamp is returned by ParseTimestamp for malformed input
var ErrInvalidTimestamp = goerr.New("invalid slack timestamp")

const (
	timestampSecondsLen = 10
	timestampSuffixLen  = 6
	timestampMinLen     = timestampSecondsLen
	timestampMaxLen     = timestampSecondsLen + 1 + timestampSuffixLen
)

// Timestamp is a Slack message identifier such as "1657150286.123456". The
// first ten digits are unix seconds; the optional six digit suffix
// disambiguates messages posted within the same second.
type Timestamp struct {
	instant time.Time
	suffix  string
}

// NewTimestamp builds a Timestamp from an instant (truncated to seconds) and
// a suffix that must be empty or six ASCII digits.
func NewTimestamp(instant time.Time, suffix string) (Timestamp, error) {
	if suffix != "" && !isDigits(suffix, timestampSuffixLen) {
		return Timestamp{}, goerr.Wrap(ErrInvalidTimestamp, "suffix must be six digits", goerr.V("suffix", suffix))
	}
	secs := instant.Unix()
	if secs < 0 || secs > 9999999999 {
		return Timestamp{}, goerr.Wrap(ErrInvalidTimestamp, "instant out of range", goerr.V("instant", instant))
	}
	return Timestamp{instant: time.Unix(secs, 0).UTC(), suffix: suffix}, nil
}

// ParseTimestamp parses the Slack wire format. Both the dotted form and the
// compact sixteen digit form are accepted.
func ParseTimestamp(text string) (Timestamp, error) {
	ts, ok := TryParseTimestamp(text)
	if !ok {
		return Timestamp{}, goerr.Wrap(ErrInvalidTimestamp, "failed to parse slack timestamp", goerr.V("text", text))
	}
	return ts, nil
}

// TryParseTimestamp is ParseTimestamp without an error value.
func TryParseTimestamp(text string) (Timestamp, bool) {
	if len(text) < timestampMinLen || len(text) > timestampMaxLen {
		return Timestamp{}, false
	}

	secsText := text[:timestampSecondsLen]
	if !isDigits(secsText, timestampSecondsLen) {
		return Timestamp{}, false
	}
	secs, err := strconv.ParseInt(secsText, 10, 64)
	if err != nil || secs < 0 {
		return Timestamp{}, false
	}

	rest := text[timestampSecondsLen:]
	var suffix string
	switch {
	case rest == "":
	case len(rest) == timestampSuffixLen:
		// compact form without separator
		suffix = rest
	case len(rest) == timestampSuffixLen+1 && rest[0] == '.':
		suffix = rest[1:]
	default:
		return Timestamp{}, false
	}
	if suffix != "" && !isDigits(suffix, timestampSuffixLen) {
		return Timestamp{}, false
	}

	return Timestamp{instant: time.Unix(secs, 0).UTC(), suffix: suffix}, true
}

// MustParseTimestamp panics on malformed input. Intended for tests and constants.
func MustParseTimestamp(text string) Timestamp {
	ts, err := ParseTimestamp(text)
	if err != nil {
		panic(err)
	}
	return ts
}

// Time returns the instant in UTC.
func (t Timestamp) Time() time.Time { return t.instant }

// Suffix returns the disambiguating suffix, possibly empty.
func (t Timestamp) Suffix() string { return t.suffix }

// IsZero reports whether t is the zero value.
func (t Timestamp) IsZero() bool { return t.instant.IsZero() && t.suffix == "" }

// String renders the canonical wire format.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	secs := strconv.FormatInt(t.instant.Unix(), 10)
	if pad := timestampSecondsLen - len(secs); pad > 0 {
		secs = strings.Repeat("0", pad) + secs
	}
	if t.suffix == "" {
		return secs
	}
	return secs + "." + t.suffix
}

// Compare orders by instant, then by ordinal comparison of the suffix.
func (t Timestamp) Compare(other Timestamp) int {
	if c := t.instant.Compare(other.instant); c != 0 {
		return c
	}
	return strings.Compare(t.suffix, other.suffix)
}

func (t Timestamp) Before(other Timestamp) bool { return t.Compare(other) < 0 }
func (t Timestamp) After(other Timestamp) bool  { return t.Compare(other) > 0 }
func (t Timestamp) Equal(other Timestamp) bool  { return t.Compare(other) == 0 }

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Timestamp) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*t = Timestamp{}
		return nil
	}
	ts, err := ParseTimestamp(string(data))
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
