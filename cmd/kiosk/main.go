package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/parlourpunch/internal/client"
	"github.com/prudhvinik1/parlourpunch/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadKioskConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := log.New(os.Stderr, "kiosk ", log.LstdFlags)

	store, err := client.OpenSQLiteLocalStore(ctx, cfg.CachePath)
	if err != nil {
		log.Fatalf("Failed to open local cache: %v", err)
	}
	defer store.Close()

	api := client.NewAPIClient(cfg.APIURL, cfg.Token)
	cache := client.NewCache(api, store, client.CacheOptions{
		Logger:            logger,
		ReconcileInterval: cfg.ReconcileInterval,
	})

	if err := cache.Seed(ctx); err != nil {
		log.Fatalf("Failed to initialize attendance data: %v", err)
	}

	notifier := client.LogNotifier{Logger: logger}
	live := client.NewLiveConn(cfg.APIURL, cfg.Token, cache, client.LiveOptions{
		Logger:   logger,
		Notifier: notifier,
	})
	live.Start(ctx)
	defer live.Stop()

	cache.Start(ctx)
	defer cache.Stop()

	controller := client.NewController(cache, live, notifier)

	printHelp()
	printRoster(cache, live)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(ctx, line, cache, live, controller); quit {
				return
			}
		}
	}
}

func handleCommand(ctx context.Context, line string, cache *client.Cache, live *client.LiveConn, controller *client.Controller) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "list", "ls":
		printRoster(cache, live)
	case "punch", "p":
		if len(fields) < 2 {
			fmt.Println("usage: punch <employee-id>")
			return false
		}
		emp := findEmployee(cache, fields[1])
		if emp == "" {
			fmt.Printf("unknown employee %q\n", fields[1])
			return false
		}
		// Failures are reported through the notifier.
		_, _ = controller.TogglePunch(ctx, fields[1], emp)
	case "feed":
		for _, event := range cache.Feed() {
			fmt.Printf("%s  %-20s %s\n", event.Timestamp.Local().Format("15:04:05"), event.EmployeeName, event.Action)
		}
	case "refresh":
		if err := cache.Reconcile(ctx); err != nil {
			fmt.Printf("refresh failed: %v\n", err)
			return false
		}
		printRoster(cache, live)
	case "quit", "exit", "q":
		return true
	default:
		printHelp()
	}
	return false
}

func findEmployee(cache *client.Cache, id string) string {
	for _, emp := range cache.Employees() {
		if emp.ID == id {
			return emp.Name
		}
	}
	return ""
}

func printRoster(cache *client.Cache, live *client.LiveConn) {
	in, out := cache.Counts()
	state := "offline"
	if live.Connected() {
		state = "live"
	}
	fmt.Printf("\n[%s] currently in: %d  out: %d\n", state, in, out)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSINCE")
	for _, emp := range cache.Employees() {
		entry, _ := cache.Get(emp.ID)
		status, since := "out", "-"
		if entry.CurrentlyIn {
			status = "in"
		}
		if !entry.LastUpdated.IsZero() {
			since = entry.LastUpdated.Local().Format("Jan 2 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", emp.ID, emp.Name, status, since)
	}
	w.Flush()
}

func printHelp() {
	fmt.Println("commands: list | punch <id> | feed | refresh | quit")
}
