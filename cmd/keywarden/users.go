package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/creatorstack/keywarden/internal/models"
)

func runUsers(args []string) {
	if len(args) < 1 {
		printUsersUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "create":
		runUsersCreate(args[1:])
	case "list":
		runUsersList(args[1:])
	case "help", "-h", "--help":
		printUsersUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown users subcommand: %s\n\n", args[0])
		printUsersUsage()
		os.Exit(1)
	}
}

func printUsersUsage() {
	fmt.Println(`Usage: keywarden users <subcommand> [options]

Subcommands:
  create   Create an admin user
  list     List admin users

Run 'keywarden users <subcommand> --help' for more information.`)
}

func runUsersCreate(args []string) {
	fs := flag.NewFlagSet("users create", flag.ExitOnError)
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "Password (required, min 8 chars)")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Error: --username and --password are required")
		fs.Usage()
		os.Exit(1)
	}
	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "Error: password must be at least 8 characters")
		os.Exit(1)
	}

	store := connectDB(*configPath, nil)
	defer store.Close()

	user, err := store.CreateUser(context.Background(), &models.CreateUserInput{
		Username: *username,
		Password: *password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User %q created (id %s).\n", user.Username, user.ID)
}

func runUsersList(args []string) {
	fs := flag.NewFlagSet("users list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	store := connectDB(*configPath, nil)
	defer store.Close()

	users, err := store.ListUsers(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing users: %v\n", err)
		os.Exit(1)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tACTIVE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", u.ID, u.Username, u.IsActive, u.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()
}
