package query

import (
	"math"
	"strings"
	"time"
)

// Date/Time Functions

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses the textual forms accepted for dates and timestamps
func parseTimestamp(str string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(str)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newError(ErrType, "parse timestamp", "cannot parse %q as a date", str)
}

// timestampArg accepts a TIMESTAMP or a TEXT date
func timestampArg(fn string, v Value) (time.Time, error) {
	switch v.typ {
	case TypeTimestamp:
		return v.t, nil
	case TypeText:
		return parseTimestamp(v.s)
	default:
		return time.Time{}, newError(ErrType, fn, "expected TIMESTAMP argument, got %s", v.typ)
	}
}

// datePart extracts one calendar field
func datePart(fn string, v Value, part func(time.Time) int) (Value, error) {
	if v.IsNull() {
		return Null(), nil
	}
	t, err := timestampArg(fn, v)
	if err != nil {
		return Null(), err
	}
	return NewInt(int64(part(t))), nil
}

// YearFunc extracts the year from a date
type YearFunc struct{}

func (f *YearFunc) Name() string                     { return "YEAR" }
func (f *YearFunc) MinArity() int                    { return 1 }
func (f *YearFunc) MaxArity() int                    { return 1 }
func (f *YearFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *YearFunc) Evaluate(args []Value) (Value, error) {
	return datePart(f.Name(), args[0], time.Time.Year)
}

// MonthFunc extracts the month from a date
type MonthFunc struct{}

func (f *MonthFunc) Name() string                     { return "MONTH" }
func (f *MonthFunc) MinArity() int                    { return 1 }
func (f *MonthFunc) MaxArity() int                    { return 1 }
func (f *MonthFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *MonthFunc) Evaluate(args []Value) (Value, error) {
	return datePart(f.Name(), args[0], func(t time.Time) int { return int(t.Month()) })
}

// DayFunc extracts the day of month from a date
type DayFunc struct{}

func (f *DayFunc) Name() string                     { return "DAY" }
func (f *DayFunc) MinArity() int                    { return 1 }
func (f *DayFunc) MaxArity() int                    { return 1 }
func (f *DayFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *DayFunc) Evaluate(args []Value) (Value, error) {
	return datePart(f.Name(), args[0], time.Time.Day)
}

// DateTruncFunc truncates a timestamp to the specified unit
type DateTruncFunc struct{}

func (f *DateTruncFunc) Name() string                     { return "DATE_TRUNC" }
func (f *DateTruncFunc) MinArity() int                    { return 2 }
func (f *DateTruncFunc) MaxArity() int                    { return 2 }
func (f *DateTruncFunc) ReturnType([]ValueType) ValueType { return TypeTimestamp }
func (f *DateTruncFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	unit, err := textArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	date, err := timestampArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}

	switch strings.ToLower(unit) {
	case "year":
		return NewTimestamp(time.Date(date.Year(), 1, 1, 0, 0, 0, 0, time.UTC)), nil
	case "quarter":
		month := time.Month((int(date.Month())-1)/3*3 + 1)
		return NewTimestamp(time.Date(date.Year(), month, 1, 0, 0, 0, 0, time.UTC)), nil
	case "month":
		return NewTimestamp(time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)), nil
	case "day":
		return NewTimestamp(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)), nil
	case "hour":
		return NewTimestamp(date.Truncate(time.Hour)), nil
	case "minute":
		return NewTimestamp(date.Truncate(time.Minute)), nil
	default:
		return Null(), newError(ErrType, f.Name(), "invalid unit %q", unit)
	}
}

// now reads clock, falling back to the wall clock
func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

// NowFunc returns the current timestamp. It reads the clock on every call; set Clock
// to pin it.
type NowFunc struct {
	Clock func() time.Time
}

func (f *NowFunc) Name() string                     { return "NOW" }
func (f *NowFunc) MinArity() int                    { return 0 }
func (f *NowFunc) MaxArity() int                    { return 0 }
func (f *NowFunc) ReturnType([]ValueType) ValueType { return TypeTimestamp }
func (f *NowFunc) Evaluate([]Value) (Value, error) {
	return NewTimestamp(now(f.Clock)), nil
}

// CurrentDateFunc returns midnight UTC of the current day
type CurrentDateFunc struct {
	Clock func() time.Time
}

func (f *CurrentDateFunc) Name() string                     { return "CURRENT_DATE" }
func (f *CurrentDateFunc) MinArity() int                    { return 0 }
func (f *CurrentDateFunc) MaxArity() int                    { return 0 }
func (f *CurrentDateFunc) ReturnType([]ValueType) ValueType { return TypeTimestamp }
func (f *CurrentDateFunc) Evaluate([]Value) (Value, error) {
	t := now(f.Clock)
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// CurrentTimeFunc returns the UTC time of day as TEXT, e.g. "15:04:05"
type CurrentTimeFunc struct {
	Clock func() time.Time
}

func (f *CurrentTimeFunc) Name() string                     { return "CURRENT_TIME" }
func (f *CurrentTimeFunc) MinArity() int                    { return 0 }
func (f *CurrentTimeFunc) MaxArity() int                    { return 0 }
func (f *CurrentTimeFunc) ReturnType([]ValueType) ValueType { return TypeText }
func (f *CurrentTimeFunc) Evaluate([]Value) (Value, error) {
	return NewText(now(f.Clock).Format("15:04:05")), nil
}

// DatePartFunc extracts the named field of a date, e.g. DATE_PART('hour', ts)
type DatePartFunc struct{}

func (f *DatePartFunc) Name() string                     { return "DATE_PART" }
func (f *DatePartFunc) MinArity() int                    { return 2 }
func (f *DatePartFunc) MaxArity() int                    { return 2 }
func (f *DatePartFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *DatePartFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	unit, err := textArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	date, err := timestampArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}

	var part int
	switch strings.ToLower(unit) {
	case "year":
		part = date.Year()
	case "quarter":
		part = (int(date.Month())-1)/3 + 1
	case "month":
		part = int(date.Month())
	case "week":
		_, part = date.ISOWeek()
	case "day":
		part = date.Day()
	case "dow":
		part = int(date.Weekday())
	case "doy":
		part = date.YearDay()
	case "hour":
		part = date.Hour()
	case "minute":
		part = date.Minute()
	case "second":
		part = date.Second()
	default:
		return Null(), newError(ErrType, f.Name(), "invalid unit %q", unit)
	}
	return NewInt(int64(part)), nil
}

// maxCalendarAmount bounds year, month and day offsets so AddDate cannot overflow
const maxCalendarAmount = 1 << 30

// shiftDate moves t by amount units; calendar units follow time.AddDate normalization
func shiftDate(fn string, t time.Time, amount int64, unit string) (time.Time, error) {
	var step time.Duration
	switch strings.ToLower(unit) {
	case "year", "quarter", "month", "week", "day":
		if amount > maxCalendarAmount || amount < -maxCalendarAmount {
			return time.Time{}, newError(ErrType, fn, "amount %d out of range", amount)
		}
		n := int(amount)
		switch strings.ToLower(unit) {
		case "year":
			return t.AddDate(n, 0, 0), nil
		case "quarter":
			return t.AddDate(0, 3*n, 0), nil
		case "month":
			return t.AddDate(0, n, 0), nil
		case "week":
			return t.AddDate(0, 0, 7*n), nil
		default:
			return t.AddDate(0, 0, n), nil
		}
	case "hour":
		step = time.Hour
	case "minute":
		step = time.Minute
	case "second":
		step = time.Second
	default:
		return time.Time{}, newError(ErrType, fn, "invalid unit %q", unit)
	}
	if amount > int64(math.MaxInt64/step) || amount < int64(math.MinInt64/step) {
		return time.Time{}, newError(ErrType, fn, "amount %d out of range", amount)
	}
	return t.Add(time.Duration(amount) * step), nil
}

// dateArith evaluates DATE_ADD and DATE_SUB; sign is 1 or -1
func dateArith(fn string, args []Value, sign int64) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	date, err := timestampArg(fn, args[0])
	if err != nil {
		return Null(), err
	}
	amount, err := intArg(fn, args[1])
	if err != nil {
		return Null(), err
	}
	unit, err := textArg(fn, args[2])
	if err != nil {
		return Null(), err
	}
	if amount == math.MinInt64 && sign < 0 {
		return Null(), newError(ErrType, fn, "amount %d out of range", amount)
	}
	t, err := shiftDate(fn, date, sign*amount, unit)
	if err != nil {
		return Null(), err
	}
	return NewTimestamp(t), nil
}

// DateAddFunc adds an interval to a date, e.g. DATE_ADD(ts, 3, 'day')
type DateAddFunc struct{}

func (f *DateAddFunc) Name() string                     { return "DATE_ADD" }
func (f *DateAddFunc) MinArity() int                    { return 3 }
func (f *DateAddFunc) MaxArity() int                    { return 3 }
func (f *DateAddFunc) ReturnType([]ValueType) ValueType { return TypeTimestamp }
func (f *DateAddFunc) Evaluate(args []Value) (Value, error) {
	return dateArith(f.Name(), args, 1)
}

// DateSubFunc subtracts an interval from a date
type DateSubFunc struct{}

func (f *DateSubFunc) Name() string                     { return "DATE_SUB" }
func (f *DateSubFunc) MinArity() int                    { return 3 }
func (f *DateSubFunc) MaxArity() int                    { return 3 }
func (f *DateSubFunc) ReturnType([]ValueType) ValueType { return TypeTimestamp }
func (f *DateSubFunc) Evaluate(args []Value) (Value, error) {
	return dateArith(f.Name(), args, -1)
}

// DateDiffFunc returns first minus second in whole days, truncated toward zero
type DateDiffFunc struct{}

func (f *DateDiffFunc) Name() string                     { return "DATE_DIFF" }
func (f *DateDiffFunc) MinArity() int                    { return 2 }
func (f *DateDiffFunc) MaxArity() int                    { return 2 }
func (f *DateDiffFunc) ReturnType([]ValueType) ValueType { return TypeInt }
func (f *DateDiffFunc) Evaluate(args []Value) (Value, error) {
	if hasNull(args) {
		return Null(), nil
	}
	first, err := timestampArg(f.Name(), args[0])
	if err != nil {
		return Null(), err
	}
	second, err := timestampArg(f.Name(), args[1])
	if err != nil {
		return Null(), err
	}
	// Whole seconds, so spans beyond the range of time.Duration stay exact
	secs := first.Unix() - second.Unix()
	ns := first.Nanosecond() - second.Nanosecond()
	switch {
	case secs > 0 && ns < 0:
		secs--
	case secs < 0 && ns > 0:
		secs++
	}
	return NewInt(secs / 86400), nil
}
