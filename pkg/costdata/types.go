package costdata

import (
	"sort"
	"time"
)

// Profile is an opaque identifier naming an account/credential profile.
// It is the key for caching, budgeting, history, and alerting.
type Profile string

// DailyCost is the total spend for a single calendar day.
// The date carries no time-of-day component.
type DailyCost struct {
	// Date is the calendar day, truncated to midnight UTC.
	Date time.Time

	// Amount is the spend for the day. Negative values (credits/refunds)
	// are passed through unmodified.
	Amount float64

	// Currency is the ISO currency code reported by the provider.
	Currency string
}

// ServiceCost is the month-to-date spend for a single service.
type ServiceCost struct {
	// Service is the provider's service name (e.g. "Amazon EC2").
	Service string

	// Amount is the accumulated spend for the service.
	Amount float64

	// Currency is the ISO currency code.
	Currency string
}

// DailyServiceCost is one (day, service) cell of the cost matrix.
// It is derived from the same provider response as DailyCost and is
// owned by the cache entry it belongs to.
type DailyServiceCost struct {
	Date     time.Time
	Service  string
	Amount   float64
	Currency string
}

// CacheEntry is a complete snapshot of one profile's month-to-date costs.
//
// Entries are built once per successful fetch and replaced wholesale; no
// field is ever mutated after construction. FetchedAt records when the
// provider was called, not the age of the underlying data.
type CacheEntry struct {
	// Profile is the profile this entry belongs to.
	Profile Profile

	// FetchedAt is the timestamp of the fetch that produced this entry.
	FetchedAt time.Time

	// MTDTotal is the month-to-date total. It equals the sum of
	// DailyCosts amounts at construction time.
	MTDTotal float64

	// Currency is the ISO currency code.
	Currency string

	// DailyCosts is ordered ascending by date.
	DailyCosts []DailyCost

	// ServiceCosts is sorted descending by amount.
	ServiceCosts []ServiceCost

	// DailyServiceCosts is the per-day per-service breakdown.
	DailyServiceCosts []DailyServiceCost

	// TodaySpend and YesterdaySpend are extracted from DailyCosts at
	// construction for display surfaces.
	TodaySpend     float64
	YesterdaySpend float64

	// StartDate and EndDate bound the fetched range [StartDate, EndDate).
	StartDate time.Time
	EndDate   time.Time
}

// NewCacheEntry builds a CacheEntry from raw per-day per-service rows.
//
// The daily series is aggregated and sorted ascending by date, service
// totals are sorted descending by amount (ties keep insertion order), and
// MTDTotal is the sum of all row amounts.
func NewCacheEntry(profile Profile, rows []DailyServiceCost, start, end, fetchedAt time.Time) *CacheEntry {
	dailyMap := make(map[time.Time]float64)
	serviceMap := make(map[string]float64)
	serviceOrder := make([]string, 0)
	currency := ""

	var total float64
	for _, row := range rows {
		day := Day(row.Date)
		if currency == "" {
			currency = row.Currency
		}
		if _, seen := serviceMap[row.Service]; !seen {
			serviceOrder = append(serviceOrder, row.Service)
		}
		dailyMap[day] += row.Amount
		serviceMap[row.Service] += row.Amount
		total += row.Amount
	}

	daily := make([]DailyCost, 0, len(dailyMap))
	for day, amount := range dailyMap {
		daily = append(daily, DailyCost{Date: day, Amount: amount, Currency: currency})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.Before(daily[j].Date) })

	services := make([]ServiceCost, 0, len(serviceOrder))
	for _, name := range serviceOrder {
		services = append(services, ServiceCost{Service: name, Amount: serviceMap[name], Currency: currency})
	}
	sort.SliceStable(services, func(i, j int) bool { return services[i].Amount > services[j].Amount })

	today := Day(fetchedAt)
	yesterday := today.AddDate(0, 0, -1)

	entry := &CacheEntry{
		Profile:           profile,
		FetchedAt:         fetchedAt,
		MTDTotal:          total,
		Currency:          currency,
		DailyCosts:        daily,
		ServiceCosts:      services,
		DailyServiceCosts: rows,
		StartDate:         start,
		EndDate:           end,
	}
	for _, d := range daily {
		if d.Date.Equal(today) {
			entry.TodaySpend = d.Amount
		}
		if d.Date.Equal(yesterday) {
			entry.YesterdaySpend = d.Amount
		}
	}
	return entry
}

// TopServices returns the n highest-spend services. The underlying slice
// is already sorted descending, so this is a bounded copy.
func (e *CacheEntry) TopServices(n int) []ServiceCost {
	if n > len(e.ServiceCosts) {
		n = len(e.ServiceCosts)
	}
	out := make([]ServiceCost, n)
	copy(out, e.ServiceCosts[:n])
	return out
}

// Age returns how old the entry is relative to now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of calendar days in t's month.
func DaysInMonth(t time.Time) int {
	start := MonthStart(t)
	return start.AddDate(0, 1, 0).AddDate(0, 0, -1).Day()
}
