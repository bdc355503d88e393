package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sciencehabits/sciencehabits/internal/common"
)

func (a *App) sync(ctx context.Context) error {
	summary, err := a.agent.SyncNow(ctx)
	if errors.Is(err, common.ErrorOffline) {
		fmt.Println("Offline. Queued operations will sync automatically when the server is reachable.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Sync finished: %d processed, %d failed, %d skipped.\n",
		summary.Processed, summary.Failed, summary.Skipped)
	for _, e := range summary.Errors {
		fmt.Println("  !", e)
	}
	return nil
}

func (a *App) showQueue(ctx context.Context) error {
	items, err := a.queue.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}

	for _, item := range items {
		line := fmt.Sprintf("%-8s %-16s %s", item.Priority, item.Envelope.Type, item.ID)
		if item.RetryCount > 0 {
			line += fmt.Sprintf("  (retries: %d, last error: %s)", item.RetryCount, item.LastError)
		}
		fmt.Println(line)
	}
	fmt.Printf("%d pending operation(s).\n", len(items))
	return nil
}
