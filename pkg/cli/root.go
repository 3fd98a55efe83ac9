package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Version is the build version, set with -ldflags "-X ...cli.Version=..."
var Version = "dev"

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// Streams are the standard streams commands read from and write to
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process standard streams
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// NewRootCommand creates the root command
func NewRootCommand(streams Streams) *Command {
	root := &Command{
		Name:        "protorules",
		Description: "protorules - compile protobuf schemas into data validators",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("protorules", flag.ContinueOnError),
	}
	root.Flags.SetOutput(streams.Err)

	// Add subcommands
	root.Subcommands["compile"] = newCompileCommand(streams)
	root.Subcommands["validate"] = newValidateCommand(streams)
	root.Subcommands["watch"] = newWatchCommand(streams)
	root.Subcommands["serve"] = newServeCommand(streams)

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	out := c.Flags.Output()
	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
