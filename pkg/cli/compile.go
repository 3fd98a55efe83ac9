package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/rules"
)

// compiledFile is the YAML document printed for each compiled file
type compiledFile struct {
	File     string                        `yaml:"file"`
	Messages map[string]*rules.Description `yaml:"messages"`
}

func newCompileCommand(streams Streams) *Command {
	cmd := &Command{
		Name:        "compile",
		Description: "Compile protobuf files and print the validation rules of each message",
		Flags:       flag.NewFlagSet("compile", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(streams.Err)

	var cf compilerFlags
	cf.register(cmd.Flags)
	workers := cmd.Flags.Int("workers", 4, "Number of files compiled concurrently")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		files := cmd.Flags.Args()
		if len(files) == 0 {
			return fmt.Errorf("no proto files given")
		}
		if *workers < 1 {
			return fmt.Errorf("workers must be positive, got %d", *workers)
		}

		cfg, err := cf.load(cmd.Flags)
		if err != nil {
			return err
		}
		opts, err := cfg.CompilerOptions()
		if err != nil {
			return err
		}
		logger := newLogger(cfg, streams.Err)
		opts = append(opts, compiler.WithLogger(logger))

		results, err := compileFiles(ctx, files, opts, *workers)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(streams.Out)
		enc.SetIndent(2)
		for i, set := range results {
			doc := compiledFile{File: files[i], Messages: set.Describe()}
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode rules for %s: %w", files[i], err)
			}
		}
		return enc.Close()
	}

	return cmd
}

// compileFiles compiles every file concurrently. The first failure cancels
// the remaining work.
func compileFiles(ctx context.Context, files []string, opts []compiler.Option, workers int) ([]*compiler.ValidatorSet, error) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	results := make([]*compiler.ValidatorSet, len(files))
	for i, path := range files {
		i, path := i, path
		eg.Go(func() (err error) {
			defer func() {
				if perr := observability.MustRecover(recover()); perr != nil {
					err = fmt.Errorf("compiling %s: %w", path, perr)
				}
			}()

			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			c := compiler.New(append(opts[:len(opts):len(opts)], compiler.WithFilename(path))...)
			set, err := c.Compile(ctx, string(source))
			if err != nil {
				return err
			}
			results[i] = set
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
