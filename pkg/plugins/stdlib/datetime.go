package stdlib

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mercator-hq/exceller/pkg/transform/value"
)

// DateTime is a date or a date and time. Naive values carry no UTC offset
// and keep their wall clock in time.UTC; aware values keep their offset.
type DateTime struct {
	t     time.Time
	aware bool
	date  bool
}

// NewDateTime wraps t. When aware is false only the wall clock of t is kept.
func NewDateTime(t time.Time, aware bool) DateTime {
	if !aware {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return DateTime{t: t, aware: aware}
}

// NewDate returns a date without a time of day.
func NewDate(year int, month time.Month, day int) DateTime {
	return DateTime{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), date: true}
}

// Time returns the underlying time.
func (d DateTime) Time() time.Time { return d.t }

// IsDate reports whether d is a date without a time of day.
func (d DateTime) IsDate() bool { return d.date }

// IsAware reports whether d carries a UTC offset.
func (d DateTime) IsAware() bool { return d.aware }

// Attr implements value.Attributer.
func (d DateTime) Attr(name string) (any, bool) {
	switch name {
	case "year":
		return int64(d.t.Year()), true
	case "month":
		return int64(d.t.Month()), true
	case "day":
		return int64(d.t.Day()), true
	}
	if !d.date {
		switch name {
		case "hour":
			return int64(d.t.Hour()), true
		case "minute":
			return int64(d.t.Minute()), true
		case "second":
			return int64(d.t.Second()), true
		case "microsecond":
			return int64(d.t.Nanosecond() / 1000), true
		case "timestamp":
			return d.method(name, 0, 0, func([]any) (any, error) {
				return float64(d.t.UnixMicro()) / 1e6, nil
			}), true
		case "date":
			return d.method(name, 0, 0, func([]any) (any, error) {
				return NewDate(d.t.Year(), d.t.Month(), d.t.Day()), nil
			}), true
		}
	}

	switch name {
	case "weekday":
		return d.method(name, 0, 0, func([]any) (any, error) {
			return int64((d.t.Weekday() + 6) % 7), nil
		}), true
	case "isoweekday":
		return d.method(name, 0, 0, func([]any) (any, error) {
			return int64((d.t.Weekday()+6)%7 + 1), nil
		}), true
	case "isoformat":
		return d.method(name, 0, 1, func(args []any) (any, error) {
			sep := "T"
			if len(args) == 1 {
				s, err := str(args, 0)
				if err != nil {
					return nil, err
				}
				sep = s
			}
			return d.isoformat(sep), nil
		}), true
	case "strftime":
		return d.method(name, 1, 1, func(args []any) (any, error) {
			layout, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return strftime(d, layout), nil
		}), true
	case "replace":
		return d.method(name, 1, 1, d.replace), true
	}
	return nil, false
}

func (d DateTime) method(name string, lo, hi int, fn func(args []any) (any, error)) value.Func {
	return value.NewFunc(name, func(args []any) (any, error) {
		if err := arity(args, lo, hi); err != nil {
			return nil, err
		}
		return fn(args)
	})
}

// replace returns a copy with the fields of a map argument substituted.
func (d DateTime) replace(args []any) (any, error) {
	fields, ok := args[0].(*value.Map)
	if !ok {
		return nil, fmt.Errorf("replace expects a map of fields, got %s", value.KindOf(args[0]))
	}
	parts := map[string]int{
		"year": d.t.Year(), "month": int(d.t.Month()), "day": d.t.Day(),
		"hour": d.t.Hour(), "minute": d.t.Minute(), "second": d.t.Second(),
		"microsecond": d.t.Nanosecond() / 1000,
	}
	var err error
	fields.Range(func(k string, v any) bool {
		if _, known := parts[k]; !known {
			err = fmt.Errorf("replace: unknown field %q", k)
			return false
		}
		n, isInt := value.AsInt(v)
		if !isInt {
			err = fmt.Errorf("replace: field %q must be an int", k)
			return false
		}
		parts[k] = int(n)
		return true
	})
	if err != nil {
		return nil, err
	}
	t, err := buildTime(parts["year"], parts["month"], parts["day"], parts["hour"], parts["minute"],
		parts["second"], parts["microsecond"]*1000, d.t.Location())
	if err != nil {
		return nil, err
	}
	return DateTime{t: t, aware: d.aware, date: d.date}, nil
}

func (d DateTime) isoformat(sep string) string {
	if d.date {
		return d.t.Format("2006-01-02")
	}
	var sb strings.Builder
	sb.WriteString(d.t.Format("2006-01-02"))
	sb.WriteString(sep)
	sb.WriteString(d.t.Format("15:04:05"))
	if us := d.t.Nanosecond() / 1000; us != 0 {
		fmt.Fprintf(&sb, ".%06d", us)
	}
	if d.aware {
		sb.WriteString(d.t.Format("-07:00"))
	}
	return sb.String()
}

func (d DateTime) String() string { return d.isoformat("T") }

// MarshalJSON renders the ISO 8601 form.
func (d DateTime) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// MarshalYAML renders the ISO 8601 form.
func (d DateTime) MarshalYAML() (interface{}, error) { return d.String(), nil }

// EqualValue implements value.Equaler. Naive and aware values, and dates and
// datetimes, are never equal.
func (d DateTime) EqualValue(other any) bool {
	o, ok := other.(DateTime)
	return ok && o.aware == d.aware && o.date == d.date && o.t.Equal(d.t)
}

// CompareValue implements value.Comparer.
func (d DateTime) CompareValue(other any) (int, error) {
	o, ok := other.(DateTime)
	if !ok || o.aware != d.aware {
		return 0, fmt.Errorf("cannot compare %s with %s", d.kind(), describeKind(other))
	}
	return d.t.Compare(o.t), nil
}

// AddValue implements value.Adder for timedelta operands.
func (d DateTime) AddValue(other any) (any, error) {
	delta, ok := other.(TimeDelta)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for add: %s and %s", d.kind(), describeKind(other))
	}
	out := d
	out.t = d.t.Add(delta.d)
	return out, nil
}

// SubValue implements value.Subtracter. Subtracting a timedelta shifts the
// value; subtracting another datetime yields a timedelta.
func (d DateTime) SubValue(other any) (any, error) {
	switch o := other.(type) {
	case TimeDelta:
		out := d
		out.t = d.t.Add(-o.d)
		return out, nil
	case DateTime:
		if o.aware != d.aware {
			return nil, fmt.Errorf("cannot subtract offset-naive and offset-aware datetimes")
		}
		return TimeDelta{d: d.t.Sub(o.t)}, nil
	}
	return nil, fmt.Errorf("unsupported operand types for sub: %s and %s", d.kind(), describeKind(other))
}

func (d DateTime) kind() string {
	if d.date {
		return "date"
	}
	return "datetime"
}

func describeKind(v any) string {
	if d, ok := v.(DateTime); ok {
		return d.kind()
	}
	if _, ok := v.(TimeDelta); ok {
		return "timedelta"
	}
	return value.KindOf(v).String()
}

// TimeDelta is a duration.
type TimeDelta struct {
	d time.Duration
}

// NewTimeDelta wraps d.
func NewTimeDelta(d time.Duration) TimeDelta { return TimeDelta{d: d} }

// Duration returns the wrapped duration.
func (t TimeDelta) Duration() time.Duration { return t.d }

// Attr implements value.Attributer. days, seconds and microseconds are
// normalized so that only days may be negative.
func (t TimeDelta) Attr(name string) (any, bool) {
	us := t.d.Microseconds()
	const usPerDay = int64(24 * time.Hour / time.Microsecond)
	days := us / usPerDay
	rem := us % usPerDay
	if rem < 0 {
		days--
		rem += usPerDay
	}
	switch name {
	case "days":
		return days, true
	case "seconds":
		return rem / 1e6, true
	case "microseconds":
		return rem % 1e6, true
	case "total_seconds":
		return value.NewFunc("total_seconds", func(args []any) (any, error) {
			if err := arity(args, 0, 0); err != nil {
				return nil, err
			}
			return t.d.Seconds(), nil
		}), true
	}
	return nil, false
}

func (t TimeDelta) String() string { return t.d.String() }

// MarshalJSON renders the duration in seconds.
func (t TimeDelta) MarshalJSON() ([]byte, error) { return json.Marshal(t.d.Seconds()) }

// EqualValue implements value.Equaler.
func (t TimeDelta) EqualValue(other any) bool {
	o, ok := other.(TimeDelta)
	return ok && o.d == t.d
}

// CompareValue implements value.Comparer.
func (t TimeDelta) CompareValue(other any) (int, error) {
	o, ok := other.(TimeDelta)
	if !ok {
		return 0, fmt.Errorf("cannot compare timedelta with %s", describeKind(other))
	}
	switch {
	case t.d < o.d:
		return -1, nil
	case t.d > o.d:
		return 1, nil
	}
	return 0, nil
}

// AddValue implements value.Adder.
func (t TimeDelta) AddValue(other any) (any, error) {
	switch o := other.(type) {
	case TimeDelta:
		return TimeDelta{d: t.d + o.d}, nil
	case DateTime:
		return o.AddValue(t)
	}
	return nil, fmt.Errorf("unsupported operand types for add: timedelta and %s", describeKind(other))
}

// SubValue implements value.Subtracter.
func (t TimeDelta) SubValue(other any) (any, error) {
	o, ok := other.(TimeDelta)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for sub: timedelta and %s", describeKind(other))
	}
	return TimeDelta{d: t.d - o.d}, nil
}

// Truthy reports whether the duration is non-zero.
func (t TimeDelta) Truthy() bool { return t.d != 0 }

func buildTime(year, month, day, hour, minute, second, nsec int, loc *time.Location) (time.Time, error) {
	switch {
	case year < 1 || year > 9999:
		return time.Time{}, fmt.Errorf("year %d is out of range", year)
	case month < 1 || month > 12:
		return time.Time{}, fmt.Errorf("month must be in 1..12")
	case hour < 0 || hour > 23:
		return time.Time{}, fmt.Errorf("hour must be in 0..23")
	case minute < 0 || minute > 59:
		return time.Time{}, fmt.Errorf("minute must be in 0..59")
	case second < 0 || second > 59:
		return time.Time{}, fmt.Errorf("second must be in 0..59")
	case nsec < 0 || nsec >= 1e9:
		return time.Time{}, fmt.Errorf("microsecond must be in 0..999999")
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("day is out of range for month")
	}
	return t, nil
}

var isoLayouts = []struct {
	layout string
	aware  bool
	date   bool
}{
	{"2006-01-02T15:04:05.999999999Z07:00", true, false},
	{"2006-01-02 15:04:05.999999999Z07:00", true, false},
	{"2006-01-02T15:04:05.999999999", false, false},
	{"2006-01-02 15:04:05.999999999", false, false},
	{"2006-01-02T15:04", false, false},
	{"2006-01-02", false, true},
}

func parseISO(s string, dateOnly bool) (DateTime, error) {
	for _, l := range isoLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if dateOnly {
			return NewDate(t.Year(), t.Month(), t.Day()), nil
		}
		return NewDateTime(t, l.aware), nil
	}
	return DateTime{}, fmt.Errorf("invalid isoformat string: %q", s)
}

// DatetimeModule returns the datetime module: the datetime, date and
// timedelta classes.
func DatetimeModule() *value.Namespace {
	return value.NewNamespace("datetime", map[string]any{
		"datetime":  datetimeClass(),
		"date":      dateClass(),
		"timedelta": timedeltaClass(),
		"MINYEAR":   int64(1),
		"MAXYEAR":   int64(9999),
	})
}

func datetimeClass() *value.Namespace {
	cls := module("datetime", map[string]func(args []any) (any, error){
		"strptime": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			layout, err := str(args, 1)
			if err != nil {
				return nil, err
			}
			return Strptime(s, layout)
		},
		"fromisoformat": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return parseISO(s, false)
		},
		"now": func(args []any) (any, error) {
			if err := nullary(args); err != nil {
				return nil, err
			}
			return NewDateTime(time.Now(), false), nil
		},
		"utcnow": func(args []any) (any, error) {
			if err := nullary(args); err != nil {
				return nil, err
			}
			return NewDateTime(time.Now().UTC(), false), nil
		},
		"fromtimestamp": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			ts, err := float(args, 0)
			if err != nil {
				return nil, err
			}
			return NewDateTime(time.UnixMicro(int64(ts*1e6)).UTC(), false), nil
		},
	}, nil)
	cls.Ctor = func(args []any) (any, error) {
		if err := arity(args, 3, 7); err != nil {
			return nil, err
		}
		parts := make([]int, 7)
		for i := range args {
			n, err := integer(args, i)
			if err != nil {
				return nil, err
			}
			parts[i] = int(n)
		}
		t, err := buildTime(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6]*1000, time.UTC)
		if err != nil {
			return nil, err
		}
		return DateTime{t: t}, nil
	}
	return cls
}

func dateClass() *value.Namespace {
	cls := module("date", map[string]func(args []any) (any, error){
		"fromisoformat": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return parseISO(s, true)
		},
		"today": func(args []any) (any, error) {
			if err := nullary(args); err != nil {
				return nil, err
			}
			now := time.Now()
			return NewDate(now.Year(), now.Month(), now.Day()), nil
		},
	}, nil)
	cls.Ctor = func(args []any) (any, error) {
		if err := arity(args, 3, 3); err != nil {
			return nil, err
		}
		parts := make([]int, 3)
		for i := range args {
			n, err := integer(args, i)
			if err != nil {
				return nil, err
			}
			parts[i] = int(n)
		}
		if _, err := buildTime(parts[0], parts[1], parts[2], 0, 0, 0, 0, time.UTC); err != nil {
			return nil, err
		}
		return NewDate(parts[0], time.Month(parts[1]), parts[2]), nil
	}
	return cls
}

// timedeltaClass builds durations from positional days, seconds,
// microseconds, milliseconds, minutes, hours and weeks.
func timedeltaClass() *value.Namespace {
	units := []time.Duration{24 * time.Hour, time.Second, time.Microsecond, time.Millisecond, time.Minute, time.Hour, 7 * 24 * time.Hour}
	cls := value.NewNamespace("timedelta", nil)
	cls.Ctor = func(args []any) (any, error) {
		if err := arity(args, 0, len(units)); err != nil {
			return nil, err
		}
		var total time.Duration
		for i := range args {
			n, err := float(args, i)
			if err != nil {
				return nil, err
			}
			total += time.Duration(n * float64(units[i]))
		}
		return TimeDelta{d: total}, nil
	}
	return cls
}

var (
	_ value.Attributer = DateTime{}
	_ value.Equaler    = DateTime{}
	_ value.Comparer   = TimeDelta{}
	_ value.Adder      = TimeDelta{}
)
