package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/platinummonkey/protorules/pkg/config"
	"github.com/platinummonkey/protorules/pkg/observability"
)

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// compilerFlags are the compiler settings shared by every subcommand.
// Flags given on the command line override the config file and environment.
type compilerFlags struct {
	configPath      string
	enumsAsIntegers bool
	strict          bool
	cycleGuard      string
	logLevel        string
	empty           stringList
}

func (f *compilerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	fs.BoolVar(&f.enumsAsIntegers, "enums-as-integers", false, "Validate enum fields against their numbers instead of names")
	fs.BoolVar(&f.strict, "strict", false, "Fail on field types that cannot be resolved")
	fs.StringVar(&f.cycleGuard, "cycle-guard", "", "Recursion guard: parent or ancestors")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.Var(&f.empty, "empty", "Value treated as absent on every field (repeatable, prefix with regex: for a pattern)")
}

// load reads the configuration and applies explicitly set flags
func (f *compilerFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "enums-as-integers":
			cfg.Compiler.EnumsAsIntegers = f.enumsAsIntegers
		case "strict":
			cfg.Compiler.StrictTypes = f.strict
		case "cycle-guard":
			cfg.Compiler.CycleGuard = f.cycleGuard
		case "log-level":
			cfg.Observability.LogLevel = f.logLevel
		case "empty":
			cfg.Compiler.EmptyMatchers = append([]string(nil), f.empty...)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) *observability.Logger {
	return observability.NewLogger(cfg.LogLevel(), out)
}
