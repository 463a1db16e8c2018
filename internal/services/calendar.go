package services

import (
	"sort"
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/us"
)

// weekdaysOnly is the country code for a plain Monday to Friday calendar.
const weekdaysOnly = "NONE"

var countryHolidays = map[string]struct {
	name     string
	holidays []*cal.Holiday
}{
	"AT": {"Austria", at.Holidays},
	"AU": {"Australia", au.HolidaysNSW},
	"BR": {"Brazil", br.Holidays},
	"CA": {"Canada", ca.Holidays},
	"DE": {"Germany", de.Holidays},
	"ES": {"Spain", es.Holidays},
	"FR": {"France", fr.Holidays},
	"GB": {"United Kingdom", gb.Holidays},
	"IE": {"Ireland", ie.Holidays},
	"IT": {"Italy", it.Holidays},
	"JP": {"Japan", jp.Holidays},
	"NL": {"Netherlands", nl.Holidays},
	"PT": {"Portugal", pt.Holidays},
	"US": {"United States", us.Holidays},
}

// CalendarService computes business-day due dates for deliveries.
type CalendarService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewCalendarService() *CalendarService {
	s := &CalendarService{calendars: make(map[string]*cal.BusinessCalendar, len(countryHolidays))}
	for code, c := range countryHolidays {
		bc := cal.NewBusinessCalendar()
		bc.Name = c.name
		bc.AddHoliday(c.holidays...)
		s.calendars[code] = bc
	}
	return s
}

// IsWorkday reports whether t is a working day in country. Unknown
// countries fall back to weekdays.
func (s *CalendarService) IsWorkday(t time.Time, country string) bool {
	country = strings.ToUpper(country)
	if country == "CN" {
		return isWorkdayChina(t)
	}
	if c, ok := s.calendars[country]; ok {
		return c.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

// China shifts working weekends around its holidays, which the lunar
// calendar tables record.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	if h := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); h != nil {
		return h.IsWork()
	}
	return !cal.IsWeekend(t)
}

// AddBusinessDays returns the end of the days-th working day after start.
// The time of day of start is kept.
func (s *CalendarService) AddBusinessDays(start time.Time, days int, country string) time.Time {
	t := start
	for days > 0 {
		t = t.AddDate(0, 0, 1)
		if s.IsWorkday(t, country) {
			days--
		}
	}
	return t
}

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedCountries lists the calendars that know public holidays.
func (s *CalendarService) SupportedCountries() []CountryInfo {
	out := []CountryInfo{{Code: "CN", Name: "China"}, {Code: weekdaysOnly, Name: "Weekdays Only (Mon-Fri)"}}
	for code, c := range countryHolidays {
		out = append(out, CountryInfo{Code: code, Name: c.name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
