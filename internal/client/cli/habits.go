package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sciencehabits/sciencehabits/internal/client/models"
)

func (a *App) currentUser(ctx context.Context) (*models.User, error) {
	return a.users.Current(ctx)
}

func (a *App) listHabits(ctx context.Context) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	list, err := a.habits.List(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No habits yet. Run 'refresh' to load the catalog or 'add' to create one.")
		return nil
	}

	for _, h := range list {
		marker := " "
		if h.IsCustom {
			marker = "*"
		}
		fmt.Printf("%s %-36s  %-10s %s\n", marker, h.ID, h.Frequency.Type, h.Title)
	}
	fmt.Println("(* = custom habit)")
	return nil
}

func (a *App) addHabit(ctx context.Context) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Habit title", os.Stdout)
	if err != nil {
		return err
	}
	freq, err := getSimpleText(a.reader, "Frequency (daily/weekly/periodic, default daily)", os.Stdout)
	if err != nil {
		return err
	}

	h := models.Habit{Title: title}
	switch models.FrequencyType(freq) {
	case models.FrequencyWeekly:
		target, err := GetInt(a.reader, "Sessions per week (default 3)", 3, os.Stdout)
		if err != nil {
			return err
		}
		h.Frequency = models.Frequency{Type: models.FrequencyWeekly, WeeklyTarget: target}
	case models.FrequencyPeriodic:
		interval, err := GetInt(a.reader, "Period length in days (default 3)", 3, os.Stdout)
		if err != nil {
			return err
		}
		target, err := GetInt(a.reader, "Sessions per period (default 1)", 1, os.Stdout)
		if err != nil {
			return err
		}
		h.Frequency = models.Frequency{Type: models.FrequencyPeriodic, IntervalDays: interval, PeriodicTarget: target}
	default:
		h.Frequency = models.Frequency{Type: models.FrequencyDaily}
	}

	if err := a.tracker.AddCustomHabit(ctx, u.ID, h); err != nil {
		return err
	}
	fmt.Println("Habit added.")
	return nil
}

func (a *App) removeHabit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: remove <habit-id>")
		return nil
	}
	u, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	if err := a.tracker.RemoveHabit(ctx, u.ID, args[0]); err != nil {
		return err
	}
	fmt.Println("Habit removed.")
	return nil
}

func (a *App) refreshCatalog(ctx context.Context) error {
	version, reloaded, err := a.catalog.Refresh(ctx, a.config.Language)
	if err != nil {
		return err
	}
	if reloaded {
		fmt.Printf("Catalog reloaded (version %s).\n", version)
	} else {
		fmt.Printf("Catalog already up to date (version %s).\n", version)
	}
	return nil
}
