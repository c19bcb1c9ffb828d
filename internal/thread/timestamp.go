package thread

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Locale supplies the timestamp-format and localization tables the builder
// needs for signature detection. It is immutable for the duration of a
// parse; concurrent parses may share one Locale.
type Locale struct {
	// DateFormat uses MediaWiki signature format tokens:
	// Y (4-digit year), y (2-digit year), F/M (month name/abbreviation),
	// n/j (month/day, no padding), m/d (padded month/day), H (padded
	// hour), G (hour), i (padded minutes), s (padded seconds). A
	// backslash escapes the following character; anything else is
	// literal text.
	DateFormat string

	// MonthNames and MonthAbbrevs are the localized month tables,
	// January first. Signatures are matched against both.
	MonthNames   [12]string
	MonthAbbrevs [12]string

	// Digits maps localized digit runes to their ASCII values, for
	// wikis whose renderer localizes numerals. Nil means ASCII only.
	Digits map[rune]rune

	// TimezoneAbbrevs are the abbreviations that may trail a signature
	// in parentheses, e.g. "UTC", mapped to IANA zone names.
	TimezoneAbbrevs map[string]string

	// Location interprets the matched wall-clock time. Timestamps are
	// normalized to UTC after parsing.
	Location *time.Location
}

// EnglishLocale returns the tables for English-language wikis, which sign
// with "H:i, j F Y (UTC)".
func EnglishLocale() Locale {
	return Locale{
		DateFormat: "H:i, j F Y",
		MonthNames: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		MonthAbbrevs: [12]string{
			"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
		},
		TimezoneAbbrevs: map[string]string{"UTC": "UTC"},
		Location:        time.UTC,
	}
}

// tokenKind identifies what a capture group in the built regexp holds.
type tokenKind int

const (
	tokYear tokenKind = iota
	tokYear2
	tokMonthNum
	tokDay
	tokHour
	tokMinute
	tokSecond
	tokMonthName
	tokZone
)

// timestampMatcher is the compiled form of a Locale's date format: one
// regexp plus the meaning of each capture group.
type timestampMatcher struct {
	re     *regexp.Regexp
	groups []tokenKind
	months map[string]time.Month
	zones  map[string]*time.Location
	digits map[rune]rune
	loc    *time.Location
}

// TimestampMatch is one recognized signature timestamp within a text node.
type TimestampMatch struct {
	Time  time.Time
	Start int // byte offset of the match within the text
	End   int
}

// newTimestampMatcher compiles the locale's date format into a matcher.
func newTimestampMatcher(l Locale) (*timestampMatcher, error) {
	digit := "[0-9"
	for r := range l.Digits {
		digit += regexp.QuoteMeta(string(r))
	}
	digit += "]"

	months := make(map[string]time.Month, 24)
	var monthAlts []string
	for i := 0; i < 12; i++ {
		for _, name := range []string{l.MonthNames[i], l.MonthAbbrevs[i]} {
			if name == "" {
				continue
			}
			months[strings.ToLower(name)] = time.Month(i + 1)
			monthAlts = append(monthAlts, regexp.QuoteMeta(name))
		}
	}

	var pat strings.Builder
	var groups []tokenKind
	format := []rune(l.DateFormat)
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case 'Y':
			pat.WriteString("(" + digit + "{4})")
			groups = append(groups, tokYear)
		case 'y':
			pat.WriteString("(" + digit + "{2})")
			groups = append(groups, tokYear2)
		case 'n':
			pat.WriteString("(" + digit + "{1,2})")
			groups = append(groups, tokMonthNum)
		case 'm':
			pat.WriteString("(" + digit + "{2})")
			groups = append(groups, tokMonthNum)
		case 'j':
			pat.WriteString("(" + digit + "{1,2})")
			groups = append(groups, tokDay)
		case 'd':
			pat.WriteString("(" + digit + "{2})")
			groups = append(groups, tokDay)
		case 'F', 'M':
			pat.WriteString("(" + strings.Join(monthAlts, "|") + ")")
			groups = append(groups, tokMonthName)
		case 'G':
			pat.WriteString("(" + digit + "{1,2})")
			groups = append(groups, tokHour)
		case 'H':
			pat.WriteString("(" + digit + "{2})")
			groups = append(groups, tokHour)
		case 'i':
			pat.WriteString("(" + digit + "{2})")
			groups = append(groups, tokMinute)
		case 's':
			pat.WriteString("(" + digit + "{2})")
			groups = append(groups, tokSecond)
		case '\\':
			if i+1 < len(format) {
				i++
				pat.WriteString(regexp.QuoteMeta(string(format[i])))
			}
		case ' ':
			// Renderers emit regular or non-breaking spaces.
			pat.WriteString(`[ \x{00A0}]`)
		default:
			pat.WriteString(regexp.QuoteMeta(string(format[i])))
		}
	}

	zones := make(map[string]*time.Location, len(l.TimezoneAbbrevs))
	var zoneAlts []string
	for abbr, zone := range l.TimezoneAbbrevs {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", zone, err)
		}
		zones[abbr] = loc
		zoneAlts = append(zoneAlts, regexp.QuoteMeta(abbr))
	}
	if len(zoneAlts) == 0 {
		zoneAlts = []string{"UTC"}
		zones["UTC"] = time.UTC
	}
	pat.WriteString(`[ \x{00A0}]*\((` + strings.Join(zoneAlts, "|") + `)\)`)
	groups = append(groups, tokZone)

	re, err := regexp.Compile(pat.String())
	if err != nil {
		return nil, fmt.Errorf("compile timestamp pattern for %q: %w", l.DateFormat, err)
	}

	loc := l.Location
	if loc == nil {
		loc = time.UTC
	}
	return &timestampMatcher{
		re:     re,
		groups: groups,
		months: months,
		zones:  zones,
		digits: l.Digits,
		loc:    loc,
	}, nil
}

// FindAll returns every timestamp match in the given text, in order.
func (m *timestampMatcher) FindAll(text string) []TimestampMatch {
	var matches []TimestampMatch
	for _, idx := range m.re.FindAllStringSubmatchIndex(text, -1) {
		t, err := m.parseMatch(text, idx)
		if err != nil {
			continue
		}
		matches = append(matches, TimestampMatch{Time: t, Start: idx[0], End: idx[1]})
	}
	return matches
}

func (m *timestampMatcher) parseMatch(text string, idx []int) (time.Time, error) {
	year, month, day := 0, time.January, 1
	hour, minute, second := 0, 0, 0
	loc := m.loc

	for g, kind := range m.groups {
		lo, hi := idx[2*(g+1)], idx[2*(g+1)+1]
		if lo < 0 {
			continue
		}
		val := text[lo:hi]
		switch kind {
		case tokMonthName:
			mo, ok := m.months[strings.ToLower(val)]
			if !ok {
				return time.Time{}, fmt.Errorf("unknown month %q", val)
			}
			month = mo
		case tokZone:
			if z, ok := m.zones[val]; ok {
				loc = z
			}
		default:
			n, err := m.number(val)
			if err != nil {
				return time.Time{}, err
			}
			switch kind {
			case tokYear:
				year = n
			case tokYear2:
				year = 2000 + n
			case tokMonthNum:
				if n < 1 || n > 12 {
					return time.Time{}, fmt.Errorf("month %d out of range", n)
				}
				month = time.Month(n)
			case tokDay:
				day = n
			case tokHour:
				hour = n
			case tokMinute:
				minute = n
			case tokSecond:
				second = n
			}
		}
	}

	if year == 0 {
		return time.Time{}, fmt.Errorf("timestamp without year in %q", text[idx[0]:idx[1]])
	}
	return time.Date(year, month, day, hour, minute, second, 0, loc).UTC(), nil
}

// number converts a possibly locale-digit string to an int.
func (m *timestampMatcher) number(s string) (int, error) {
	if m.digits != nil {
		s = strings.Map(func(r rune) rune {
			if ascii, ok := m.digits[r]; ok {
				return ascii
			}
			return r
		}, s)
	}
	return strconv.Atoi(s)
}
