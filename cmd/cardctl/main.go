// Package main is the cardctl configuration tool: validate, migrate, and
// inspect widget configuration documents offline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/sashad/cardcore/internal/configbridge"
	"github.com/sashad/cardcore/internal/confighash"
	"github.com/sashad/cardcore/internal/configstate"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var output string
	var showVersion bool

	flag.StringVar(&output, "o", "", "Output file (default stdout)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("cardctl %s (%s)\n", version, commit)
		return 0
	}

	args := flag.Args()
	if len(args) < 2 {
		usage()
		return 2
	}
	command, file := args[0], args[1]

	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch command {
	case "validate":
		return cmdValidate(data)
	case "migrate":
		return cmdMigrate(data, output)
	case "inspect":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: inspect needs a path argument")
			return 2
		}
		return cmdInspect(data, args[2])
	case "hash":
		return cmdHash(data)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "cardctl - widget configuration tool\n\n")
	fmt.Fprintf(os.Stderr, "Usage: cardctl [options] <command> <file> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  validate <file>         Validate a configuration document\n")
	fmt.Fprintf(os.Stderr, "  migrate <file>          Migrate legacy device fields into the base layer\n")
	fmt.Fprintf(os.Stderr, "  inspect <file> <path>   Print the value at a dotted path\n")
	fmt.Fprintf(os.Stderr, "  hash <file>             Print the document's content hash\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func parseDocument(data []byte) (configstate.WidgetConfiguration, error) {
	var cfg configstate.WidgetConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

func cmdValidate(data []byte) int {
	cfg, err := parseDocument(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	manager := configstate.NewManager()
	res := manager.Validate(&cfg, nil)

	for _, issue := range res.Errors {
		fmt.Printf("error   %-30s %s\n", issue.Path, issue.Message)
	}
	for _, issue := range res.Warnings {
		fmt.Printf("warning %-30s %s\n", issue.Path, issue.Message)
	}
	if !res.Valid {
		fmt.Printf("invalid: %d error(s), %d warning(s)\n", len(res.Errors), len(res.Warnings))
		return 1
	}
	fmt.Printf("valid: %d warning(s)\n", len(res.Warnings))
	return 0
}

func cmdMigrate(data []byte, output string) int {
	cfg, err := parseDocument(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	migrated, changed := configbridge.MigrateDocument(cfg)
	if !changed {
		fmt.Fprintln(os.Stderr, "already migrated, no changes")
	}

	out, err := json.MarshalIndent(migrated, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if output == "" {
		fmt.Println(string(out))
		return 0
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdInspect(data []byte, path string) int {
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		fmt.Fprintf(os.Stderr, "Error: no value at %q\n", path)
		return 1
	}
	fmt.Println(result.Raw)
	return 0
}

func cmdHash(data []byte) int {
	cfg, err := parseDocument(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	sum, err := confighash.Sum(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(sum)
	return 0
}
