package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/client/services"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/datex"
)

func (a *App) done(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: done <habit-id> [YYYY-MM-DD]")
		return nil
	}
	habitID := args[0]
	date := ""
	if len(args) > 1 {
		date = args[1]
		if !datex.Valid(date) {
			return fmt.Errorf("bad date %q, expected YYYY-MM-DD", date)
		}
	}

	u, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	if err := a.tracker.CompleteHabit(ctx, u.ID, habitID, date); err != nil {
		return err
	}
	fmt.Println("Done!")
	return nil
}

func (a *App) stats(ctx context.Context, args []string) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		p, err := a.ledger.Get(ctx, u.ID, args[0])
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Println("No progress for this habit yet.")
			return nil
		} else if err != nil {
			return err
		}
		a.printProgress(ctx, *p)
		return nil
	}

	rows, err := a.ledger.List(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Nothing tracked yet.")
		return nil
	}
	for _, p := range rows {
		a.printProgress(ctx, p)
	}
	return nil
}

func (a *App) printProgress(ctx context.Context, p models.Progress) {
	title := p.HabitID
	if h, err := a.habits.Get(ctx, p.HabitID); err == nil {
		title = h.Title
	}

	switch {
	case len(p.WeeklyProgress) > 0:
		fmt.Printf("%s: %d weeks in a row, %d total days (since %s)\n",
			title, services.PeriodStreak(p.WeeklyProgress), p.TotalDays, p.DateStarted)
	case len(p.PeriodicProgress) > 0:
		fmt.Printf("%s: %d periods in a row, %d total days (since %s)\n",
			title, services.PeriodStreak(p.PeriodicProgress), p.TotalDays, p.DateStarted)
	default:
		fmt.Printf("%s: current streak %d, longest %d, %d total days (since %s)\n",
			title, p.CurrentStreak, p.LongestStreak, p.TotalDays, p.DateStarted)
	}
}

func (a *App) research(ctx context.Context) error {
	articles, err := a.catalog.Research(ctx, a.config.Language)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No research cached. Run 'refresh' while online.")
		return nil
	}
	for _, r := range articles {
		fmt.Printf("%-24s %s (%d min read)\n", r.ID, r.Title, r.ReadingMinutes)
	}
	return nil
}
