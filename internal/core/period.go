package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quarter is a fiscal quarter, Q1 through Q4.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

var quarterNames = map[Quarter]string{
	Q1: "First Quarter",
	Q2: "Second Quarter",
	Q3: "Third Quarter",
	Q4: "Fourth Quarter",
}

func (q Quarter) String() string {
	if q < Q1 || q > Q4 {
		return fmt.Sprintf("Quarter(%d)", int(q))
	}
	return "Q" + strconv.Itoa(int(q))
}

// ParseQuarter accepts "Q1".."Q4" (case insensitive).
func ParseQuarter(s string) (Quarter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || s[0] != 'Q' || s[1] < '1' || s[1] > '4' {
		return 0, fmt.Errorf("%w: quarter %q", ErrInvalidPeriod, s)
	}
	return Quarter(s[1] - '0'), nil
}

// PeriodKey identifies one ledger instance. Its string form "<year>-<quarter>"
// is the only external identifier of a period.
type PeriodKey struct {
	Year    int
	Quarter Quarter
}

// ParsePeriodKey parses keys such as "2025-Q3".
func ParsePeriodKey(s string) (PeriodKey, error) {
	yearPart, quarterPart, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: year %q", ErrInvalidPeriod, yearPart)
	}
	q, err := ParseQuarter(quarterPart)
	if err != nil {
		return PeriodKey{}, err
	}
	k := PeriodKey{Year: year, Quarter: q}
	if err := k.Validate(); err != nil {
		return PeriodKey{}, err
	}
	return k, nil
}

// PeriodForDate returns the period a calendar day falls in.
func PeriodForDate(t time.Time) PeriodKey {
	return PeriodKey{Year: t.Year(), Quarter: Quarter((int(t.Month())-1)/3 + 1)}
}

func (k PeriodKey) Validate() error {
	if k.Year < 1 || k.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, k.Year)
	}
	if k.Quarter < Q1 || k.Quarter > Q4 {
		return fmt.Errorf("%w: quarter %d", ErrInvalidPeriod, int(k.Quarter))
	}
	return nil
}

func (k PeriodKey) String() string {
	return strconv.Itoa(k.Year) + "-" + k.Quarter.String()
}

// Label is the human readable name used on printed registers.
func (k PeriodKey) Label() string {
	return quarterNames[k.Quarter] + " " + strconv.Itoa(k.Year)
}

// Next returns the succeeding period; Q4 rolls over into Q1 of the next year.
func (k PeriodKey) Next() PeriodKey {
	if k.Quarter == Q4 {
		return PeriodKey{Year: k.Year + 1, Quarter: Q1}
	}
	return PeriodKey{Year: k.Year, Quarter: k.Quarter + 1}
}

// Prev returns the preceding period.
func (k PeriodKey) Prev() PeriodKey {
	if k.Quarter == Q1 {
		return PeriodKey{Year: k.Year - 1, Quarter: Q4}
	}
	return PeriodKey{Year: k.Year, Quarter: k.Quarter - 1}
}

// Before reports whether k precedes other.
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Quarter < other.Quarter
}

func (k PeriodKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PeriodKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriodKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
