package services

import (
	"sort"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/datex"
)

// periodWindowCount is how many trailing weekly/periodic windows are kept on
// a progress row.
const periodWindowCount = 12

// RecomputeProgress rebuilds every derived field on p from its completion
// set and the habit's frequency policy, with "today" anchoring the current
// streak. It is the single place streaks are computed; callers persist the
// row in the same transaction so the derived fields can never drift from
// the underlying dates.
//
// Daily habits get CurrentStreak/LongestStreak. Weekly and periodic habits
// get their trailing period windows instead and leave the daily streak
// fields untouched; PeriodStreak derives their streak from the windows.
func RecomputeProgress(p *models.Progress, freq models.Frequency, today string) error {
	p.Completions = normalizeDates(p.Completions)
	p.TotalDays = len(p.Completions)

	switch freq.Type {
	case models.FrequencyWeekly:
		windows, err := buildWeeklyWindows(p.Completions, freq, today)
		if err != nil {
			return err
		}
		p.WeeklyProgress = windows
	case models.FrequencyPeriodic:
		windows, err := buildPeriodicWindows(p.Completions, freq, p.DateStarted, today)
		if err != nil {
			return err
		}
		p.PeriodicProgress = windows
	default:
		current, err := dailyCurrentStreak(p.Completions, today)
		if err != nil {
			return err
		}
		longest, err := dailyLongestStreak(p.Completions)
		if err != nil {
			return err
		}
		p.CurrentStreak = current
		// longestStreak keeps its historical maximum
		if longest > p.LongestStreak {
			p.LongestStreak = longest
		}
	}
	return nil
}

// PeriodStreak counts consecutive achieved windows ending at the newest
// window. A not-yet-achieved newest window does not break the streak; it is
// simply skipped, mirroring how an incomplete today is skipped for daily
// streaks.
func PeriodStreak(windows []models.PeriodProgress) int {
	if len(windows) == 0 {
		return 0
	}

	i := len(windows) - 1
	if !windows[i].Achieved {
		i--
	}

	streak := 0
	for ; i >= 0; i-- {
		if !windows[i].Achieved {
			break
		}
		streak++
	}
	return streak
}

// normalizeDates sorts the dates ascending and removes duplicates.
func normalizeDates(dates []string) []string {
	if len(dates) == 0 {
		return []string{}
	}
	sorted := make([]string, len(dates))
	copy(sorted, dates)
	sort.Strings(sorted)

	out := sorted[:1]
	for _, d := range sorted[1:] {
		if d != out[len(out)-1] {
			out = append(out, d)
		}
	}
	return out
}

// dailyCurrentStreak walks backward day-by-day from today (or yesterday
// when today is not completed) while consecutive dates are present.
func dailyCurrentStreak(sorted []string, today string) (int, error) {
	set := make(map[string]struct{}, len(sorted))
	for _, d := range sorted {
		set[d] = struct{}{}
	}

	cursor := today
	if _, ok := set[cursor]; !ok {
		prev, err := datex.AddDays(today, -1)
		if err != nil {
			return 0, err
		}
		cursor = prev
	}

	streak := 0
	for {
		if _, ok := set[cursor]; !ok {
			return streak, nil
		}
		streak++
		prev, err := datex.AddDays(cursor, -1)
		if err != nil {
			return 0, err
		}
		cursor = prev
	}
}

// dailyLongestStreak scans the sorted date list for the longest run of
// day-to-day-consecutive dates.
func dailyLongestStreak(sorted []string) (int, error) {
	if len(sorted) == 0 {
		return 0, nil
	}

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		gap, err := datex.DaysBetween(sorted[i-1], sorted[i])
		if err != nil {
			return 0, err
		}
		if gap == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest, nil
}

// buildWeeklyWindows produces the trailing Monday-based week windows ending
// at the week containing today.
func buildWeeklyWindows(sorted []string, freq models.Frequency, today string) ([]models.PeriodProgress, error) {
	currentStart, err := datex.WeekStart(today)
	if err != nil {
		return nil, err
	}

	target := freq.WeeklyTarget
	if target <= 0 {
		target = 1
	}

	windows := make([]models.PeriodProgress, 0, periodWindowCount)
	for i := periodWindowCount - 1; i >= 0; i-- {
		start, err := datex.AddDays(currentStart, -7*i)
		if err != nil {
			return nil, err
		}
		w, err := buildWindow(sorted, start, 7, target)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// buildPeriodicWindows produces the trailing interval windows counted from
// the progress start date, ending at the window containing today.
func buildPeriodicWindows(sorted []string, freq models.Frequency, dateStarted, today string) ([]models.PeriodProgress, error) {
	interval := freq.IntervalDays
	if interval <= 0 {
		interval = 1
	}
	target := freq.PeriodicTarget
	if target <= 0 {
		target = 1
	}

	elapsed, err := datex.DaysBetween(dateStarted, today)
	if err != nil {
		return nil, err
	}
	if elapsed < 0 {
		elapsed = 0
	}
	currentIdx := elapsed / interval

	firstIdx := currentIdx - periodWindowCount + 1
	if firstIdx < 0 {
		firstIdx = 0
	}

	windows := make([]models.PeriodProgress, 0, currentIdx-firstIdx+1)
	for i := firstIdx; i <= currentIdx; i++ {
		start, err := datex.AddDays(dateStarted, i*interval)
		if err != nil {
			return nil, err
		}
		w, err := buildWindow(sorted, start, interval, target)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func buildWindow(sorted []string, start string, lengthDays, target int) (models.PeriodProgress, error) {
	end, err := datex.AddDays(start, lengthDays-1)
	if err != nil {
		return models.PeriodProgress{}, err
	}

	completed := []string{}
	for _, d := range sorted {
		if d >= start && d <= end {
			completed = append(completed, d)
		}
	}

	return models.PeriodProgress{
		PeriodStart:    start,
		CompletedDates: completed,
		Target:         target,
		Achieved:       len(completed) >= target,
	}, nil
}
