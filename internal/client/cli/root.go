package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.agent.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	if n, err := a.queue.Pending(context.Background()); err == nil && n > 0 {
		s += fmt.Sprintf(" %d pending", n)
	}
	return "(" + s + ")"
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to ScienceHabits CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	if err := a.ensureProfile(ctx); err != nil {
		fmt.Println("Error:", err)
		return
	}

	for {
		fmt.Printf("shab %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			fmt.Println("Available commands: register, login, logout, habits, add, remove,")
			fmt.Println("  done [habit-id] [date], stats [habit-id], research, refresh,")
			fmt.Println("  sync, queue, exit")
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "habits":
			err = a.listHabits(ctx)
		case "add":
			err = a.addHabit(ctx)
		case "remove":
			err = a.removeHabit(ctx, args)
		case "done":
			err = a.done(ctx, args)
		case "stats":
			err = a.stats(ctx, args)
		case "research":
			err = a.research(ctx)
		case "refresh":
			err = a.refreshCatalog(ctx)
		case "sync":
			err = a.sync(ctx)
		case "queue":
			err = a.showQueue(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}

		if err != nil {
			fmt.Println("Error:", err)
		}
	}
}
