package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/creatorstack/keywarden/internal/models"
)

func runMappings(args []string) {
	if len(args) < 1 {
		printMappingsUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		runMappingsList(args[1:])
	case "set":
		runMappingsSet(args[1:])
	case "add":
		runMappingsAdd(args[1:])
	case "help", "-h", "--help":
		printMappingsUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown mappings subcommand: %s\n\n", args[0])
		printMappingsUsage()
		os.Exit(1)
	}
}

func printMappingsUsage() {
	fmt.Println(`Usage: keywarden mappings <subcommand> [options]

Subcommands:
  list   List all function mappings
  set    Set the preferred/fallback service of an existing function
  add    Add a new function mapping

Run 'keywarden mappings <subcommand> --help' for more information.`)
}

func runMappingsList(args []string) {
	fs := flag.NewFlagSet("mappings list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	store := connectDB(*configPath, nil)
	defer store.Close()

	mappings, err := store.ListMappings(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing mappings: %v\n", err)
		os.Exit(1)
	}

	if len(mappings) == 0 {
		fmt.Println("No function mappings found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tCATEGORY\tPREFERRED\tFALLBACK")
	for _, m := range mappings {
		fallback := "-"
		if m.FallbackService != nil && *m.FallbackService != "" {
			fallback = *m.FallbackService
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.FunctionName, m.Category, m.PreferredService, fallback)
	}
	w.Flush()
}

func runMappingsSet(args []string) {
	fs := flag.NewFlagSet("mappings set", flag.ExitOnError)
	function := fs.String("function", "", "Function name (required)")
	preferred := fs.String("preferred", "", "Preferred service name (required)")
	fallback := fs.String("fallback", "", "Fallback service name")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if *function == "" || *preferred == "" {
		fmt.Fprintln(os.Stderr, "Error: --function and --preferred are required")
		fs.Usage()
		os.Exit(1)
	}

	store := connectDB(*configPath, nil)
	defer store.Close()

	input := &models.UpdateMappingInput{
		FunctionName:     *function,
		PreferredService: *preferred,
	}
	if *fallback != "" {
		input.FallbackService = fallback
	}

	mapping, err := store.UpdateMapping(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error updating mapping: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Function %q now prefers %q.\n", mapping.FunctionName, mapping.PreferredService)
}

func runMappingsAdd(args []string) {
	fs := flag.NewFlagSet("mappings add", flag.ExitOnError)
	function := fs.String("function", "", "Function name (required)")
	category := fs.String("category", "", "Category (required)")
	description := fs.String("description", "", "Description")
	preferred := fs.String("preferred", "", "Preferred service name")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if *function == "" || *category == "" {
		fmt.Fprintln(os.Stderr, "Error: --function and --category are required")
		fs.Usage()
		os.Exit(1)
	}

	store := connectDB(*configPath, nil)
	defer store.Close()

	input := &models.AddMappingInput{
		FunctionName:     *function,
		Category:         *category,
		PreferredService: *preferred,
	}
	if *description != "" {
		input.Description = description
	}

	mapping, err := store.AddMapping(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding mapping: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Function mapping %q created.\n", mapping.FunctionName)
}
