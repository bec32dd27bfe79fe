package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
)

func runKeys(args []string) {
	if len(args) < 1 {
		printKeysUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		runKeysList(args[1:])
	case "delete":
		runKeysDelete(args[1:])
	case "activate":
		runKeysSetActive(args[1:], true)
	case "deactivate":
		runKeysSetActive(args[1:], false)
	case "reconcile":
		runKeysReconcile(args[1:])
	case "help", "-h", "--help":
		printKeysUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keys subcommand: %s\n\n", args[0])
		printKeysUsage()
		os.Exit(1)
	}
}

func printKeysUsage() {
	fmt.Println(`Usage: keywarden keys <subcommand> [options]

Subcommands:
  list        List all stored service keys
  delete      Delete a service key
  activate    Mark a service key active
  deactivate  Mark a service key inactive
  reconcile   Repair duplicate primary flags

Run 'keywarden keys <subcommand> --help' for more information.`)
}

func runKeysList(args []string) {
	fs := flag.NewFlagSet("keys list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	store := connectDB(*configPath, nil)
	defer store.Close()

	keys, err := store.ListServiceKeys(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing keys: %v\n", err)
		os.Exit(1)
	}

	if len(keys) == 0 {
		fmt.Println("No service keys found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSERVICE\tCATEGORY\tPRIMARY\tACTIVE\tSTATUS\tLAST VALIDATED")
	for _, key := range keys {
		lastValidated := "never"
		if key.LastValidated != nil {
			lastValidated = key.LastValidated.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\t%s\n",
			key.ID, key.ServiceName, key.Category, key.IsPrimary, key.IsActive, key.Status, lastValidated)
	}
	w.Flush()
}

func runKeysDelete(args []string) {
	fs := flag.NewFlagSet("keys delete", flag.ExitOnError)
	id := fs.String("id", "", "Service key ID (required)")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	keyID := parseKeyID(*id, fs)

	store := connectDB(*configPath, nil)
	defer store.Close()

	if err := store.DeleteServiceKey(context.Background(), keyID); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Service key %s deleted.\n", keyID)
}

func runKeysSetActive(args []string, active bool) {
	verb := "activate"
	if !active {
		verb = "deactivate"
	}

	fs := flag.NewFlagSet("keys "+verb, flag.ExitOnError)
	id := fs.String("id", "", "Service key ID (required)")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	keyID := parseKeyID(*id, fs)

	store := connectDB(*configPath, nil)
	defer store.Close()

	key, err := store.SetServiceKeyActive(context.Background(), keyID, active)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error updating key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Service %s is now active=%t.\n", key.ServiceName, key.IsActive)
}

func runKeysReconcile(args []string) {
	fs := flag.NewFlagSet("keys reconcile", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	store := connectDB(*configPath, nil)
	defer store.Close()

	fixed, err := store.ReconcilePrimaries(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reconciling primaries: %v\n", err)
		os.Exit(1)
	}

	if fixed == 0 {
		fmt.Println("No duplicate primary flags found.")
	} else {
		fmt.Printf("Cleared %d duplicate primary flag(s).\n", fixed)
	}
}

func parseKeyID(raw string, fs *flag.FlagSet) uuid.UUID {
	if raw == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		fs.Usage()
		os.Exit(1)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid key ID: %v\n", err)
		os.Exit(1)
	}
	return id
}
