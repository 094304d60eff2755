package stdlib

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	cstrftime "github.com/ncruces/go-strftime"
)

var (
	monthNames = []string{"january", "february", "march", "april", "may", "june", "july",
		"august", "september", "october", "november", "december"}
	dayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

// Strptime parses s according to a strftime-style layout. Supported
// directives: %Y %m %d %H %M %S %f %z %Z %b %B %h %a %A %y %j %p %I %%.
// Matching is case-insensitive and whitespace in the layout matches any run
// of whitespace. Without %z the result is naive.
func Strptime(s, layout string) (DateTime, error) {
	p := strptimeState{year: 1900, month: 1, day: 1}
	mismatch := fmt.Errorf("time data %q does not match format %q", s, layout)

	i := 0
	for j := 0; j < len(layout); j++ {
		c := layout[j]
		if c != '%' {
			if unicode.IsSpace(rune(c)) {
				for i < len(s) && unicode.IsSpace(rune(s[i])) {
					i++
				}
				continue
			}
			if i >= len(s) || unicode.ToLower(rune(s[i])) != unicode.ToLower(rune(c)) {
				return DateTime{}, mismatch
			}
			i++
			continue
		}

		j++
		if j >= len(layout) {
			return DateTime{}, fmt.Errorf("stray %% in format %q", layout)
		}
		n, err := p.directive(layout[j], s[i:])
		if err != nil {
			if err == errMismatch {
				return DateTime{}, mismatch
			}
			return DateTime{}, err
		}
		i += n
	}
	if i < len(s) {
		return DateTime{}, fmt.Errorf("unconverted data remains: %s", s[i:])
	}
	return p.result()
}

var errMismatch = errors.New("mismatch")

type strptimeState struct {
	year, month, day     int
	hour, minute, second int
	nsec                 int
	yday                 int
	hour12, pm           bool
	hasPM                bool
	offset               *int
	hasMonthDay          bool
}

// directive consumes the input for one directive and returns its length.
func (p *strptimeState) directive(d byte, in string) (int, error) {
	var (
		n   int
		err error
	)
	switch d {
	case 'Y':
		p.year, n, err = number(in, 4)
	case 'y':
		var y int
		y, n, err = number(in, 2)
		if y < 69 {
			p.year = 2000 + y
		} else {
			p.year = 1900 + y
		}
	case 'm':
		p.month, n, err = number(in, 2)
		p.hasMonthDay = true
	case 'd':
		p.day, n, err = number(in, 2)
		p.hasMonthDay = true
	case 'H':
		p.hour, n, err = number(in, 2)
	case 'I':
		p.hour, n, err = number(in, 2)
		p.hour12 = true
	case 'M':
		p.minute, n, err = number(in, 2)
	case 'S':
		p.second, n, err = number(in, 2)
	case 'j':
		p.yday, n, err = number(in, 3)
	case 'f':
		var frac int
		frac, n, err = number(in, 6)
		for k := n; k < 9; k++ {
			frac *= 10
		}
		p.nsec = frac
	case 'b', 'B', 'h':
		var idx int
		idx, n = matchName(in, monthNames)
		if n == 0 {
			return 0, errMismatch
		}
		p.month = idx + 1
		p.hasMonthDay = true
	case 'a', 'A':
		_, n = matchName(in, dayNames)
		if n == 0 {
			return 0, errMismatch
		}
	case 'p':
		switch {
		case len(in) >= 2 && strings.EqualFold(in[:2], "am"):
			p.hasPM, p.pm = true, false
		case len(in) >= 2 && strings.EqualFold(in[:2], "pm"):
			p.hasPM, p.pm = true, true
		default:
			return 0, errMismatch
		}
		n = 2
	case 'z':
		var off int
		off, n, err = parseOffset(in)
		p.offset = &off
	case 'Z':
		for n < len(in) && unicode.IsLetter(rune(in[n])) {
			n++
		}
		if n == 0 {
			return 0, errMismatch
		}
	case '%':
		if len(in) == 0 || in[0] != '%' {
			return 0, errMismatch
		}
		n = 1
	default:
		return 0, fmt.Errorf("bad directive '%%%c' in format", d)
	}
	return n, err
}

func (p *strptimeState) result() (DateTime, error) {
	hour := p.hour
	if p.hour12 {
		if hour < 1 || hour > 12 {
			return DateTime{}, fmt.Errorf("hour must be in 1..12 with %%I")
		}
		hour %= 12
		if p.pm {
			hour += 12
		}
	}

	loc := time.UTC
	if p.offset != nil {
		loc = time.FixedZone("", *p.offset)
	}

	month, day := p.month, p.day
	if p.yday > 0 && !p.hasMonthDay {
		jan1 := time.Date(p.year, 1, 1, 0, 0, 0, 0, time.UTC)
		d := jan1.AddDate(0, 0, p.yday-1)
		if d.Year() != p.year {
			return DateTime{}, fmt.Errorf("day of year %d is out of range", p.yday)
		}
		month, day = int(d.Month()), d.Day()
	}

	t, err := buildTime(p.year, month, day, hour, p.minute, p.second, p.nsec, loc)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{t: t, aware: p.offset != nil}, nil
}

// number reads between 1 and width ASCII digits.
func number(in string, width int) (int, int, error) {
	n := 0
	for n < len(in) && n < width && in[n] >= '0' && in[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, 0, errMismatch
	}
	v, err := strconv.Atoi(in[:n])
	return v, n, err
}

// matchName matches a full or three-letter abbreviated name, returning its
// index and the consumed length.
func matchName(in string, names []string) (int, int) {
	lower := strings.ToLower(in)
	for i, name := range names {
		if strings.HasPrefix(lower, name) {
			return i, len(name)
		}
	}
	for i, name := range names {
		if strings.HasPrefix(lower, name[:3]) {
			return i, 3
		}
	}
	return 0, 0
}

// parseOffset reads Z, +HHMM, +HH:MM or either with trailing seconds.
func parseOffset(in string) (int, int, error) {
	if len(in) > 0 && (in[0] == 'Z' || in[0] == 'z') {
		return 0, 1, nil
	}
	if len(in) < 5 || (in[0] != '+' && in[0] != '-') {
		return 0, 0, errMismatch
	}
	sign := 1
	if in[0] == '-' {
		sign = -1
	}
	digits := make([]byte, 0, 6)
	n := 1
scan:
	for n < len(in) && len(digits) < 6 {
		c := in[n]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == ':':
		default:
			break scan
		}
		n++
	}
	if len(digits) != 4 && len(digits) != 6 {
		return 0, 0, errMismatch
	}
	hh, _ := strconv.Atoi(string(digits[0:2]))
	mm, _ := strconv.Atoi(string(digits[2:4]))
	ss := 0
	if len(digits) == 6 {
		ss, _ = strconv.Atoi(string(digits[4:6]))
	}
	return sign * (hh*3600 + mm*60 + ss), n, nil
}

// strftime formats d. %f and the zone directives are handled here, and naive
// values print no zone. Everything else goes to the C-compatible formatter.
func strftime(d DateTime, layout string) string {
	t := d.t
	var sb, chunk strings.Builder
	flush := func() {
		if chunk.Len() > 0 {
			sb.WriteString(cstrftime.Format(chunk.String(), t))
			chunk.Reset()
		}
	}
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' {
			chunk.WriteByte(c)
			continue
		}
		if i+1 >= len(layout) {
			flush()
			sb.WriteByte('%')
			break
		}
		i++
		switch layout[i] {
		case 'f':
			flush()
			fmt.Fprintf(&sb, "%06d", t.Nanosecond()/1000)
		case 'z':
			flush()
			if d.aware {
				sb.WriteString(t.Format("-0700"))
			}
		case 'Z':
			flush()
			if d.aware {
				sb.WriteString(t.Format("MST"))
			}
		default:
			chunk.WriteByte('%')
			chunk.WriteByte(layout[i])
		}
	}
	flush()
	return sb.String()
}
