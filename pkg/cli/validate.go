package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/rules"
)

// ErrValidationFailed is returned when the data does not satisfy the message rule
var ErrValidationFailed = errors.New("validation failed")

func newValidateCommand(streams Streams) *Command {
	cmd := &Command{
		Name:        "validate",
		Description: "Validate a YAML or JSON document against a protobuf message",
		Flags:       flag.NewFlagSet("validate", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(streams.Err)

	var cf compilerFlags
	cf.register(cmd.Flags)
	schemaPath := cmd.Flags.String("schema", "", "Protobuf file declaring the message")
	message := cmd.Flags.String("message", "", "Top-level message to validate against")
	dataPath := cmd.Flags.String("data", "", "YAML or JSON document to validate (stdin when empty)")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *schemaPath == "" {
			return fmt.Errorf("-schema is required")
		}
		if *message == "" {
			return fmt.Errorf("-message is required")
		}

		cfg, err := cf.load(cmd.Flags)
		if err != nil {
			return err
		}
		opts, err := cfg.CompilerOptions()
		if err != nil {
			return err
		}
		opts = append(opts,
			compiler.WithLogger(newLogger(cfg, streams.Err)),
			compiler.WithFilename(*schemaPath),
		)

		source, err := os.ReadFile(*schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema: %w", err)
		}
		set, err := compiler.New(opts...).Compile(ctx, string(source))
		if err != nil {
			return err
		}

		data, err := readData(*dataPath, streams.In)
		if err != nil {
			return err
		}

		normalized, err := set.Validate(*message, data)
		if verrs, ok := rules.AsValidationErrors(err); ok {
			for _, v := range verrs.Errors {
				fmt.Fprintf(streams.Out, "%s [%s]\n", v.Error(), v.Code)
			}
			return fmt.Errorf("%w: %d violation(s)", ErrValidationFailed, len(verrs.Errors))
		}
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(streams.Out)
		enc.SetIndent(2)
		if err := enc.Encode(normalized); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	}

	return cmd
}

// readData decodes a YAML (or JSON) document from path, or from in when path is empty
func readData(path string, in io.Reader) (any, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	return data, nil
}
