package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protorules/pkg/api/protobuf"
	"github.com/platinummonkey/protorules/pkg/compiler"
)

const orderProto = `syntax = "proto2";
package shop;

enum Status {
  PENDING = 0;
  SHIPPED = 1;
}

message Order {
  required string id = 1;
  optional Status status = 2 [default = PENDING];
  repeated string tags = 3;
  oneof payment {
    string card = 4;
    string invoice = 5;
  }
}
`

const userProto = `syntax = "proto3";
message User {
  string name = 1;
  map<string, string> labels = 2;
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decodeCompiled(t *testing.T, output string) []compiledFile {
	t.Helper()
	dec := yaml.NewDecoder(strings.NewReader(output))
	var docs []compiledFile
	for {
		var doc compiledFile
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return docs
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	orderPath := writeFile(t, dir, "order.proto", orderProto)
	userPath := writeFile(t, dir, "user.proto", userProto)

	t.Run("prints rules for every file in order", func(t *testing.T) {
		streams, ts := newTestStreams("")
		cmd := newCompileCommand(streams)

		err := cmd.Run(context.Background(), []string{orderPath, userPath})
		require.NoError(t, err)

		docs := decodeCompiled(t, ts.out.String())
		require.Len(t, docs, 2)
		assert.Equal(t, orderPath, docs[0].File)
		assert.Equal(t, userPath, docs[1].File)

		order := docs[0].Messages["Order"]
		require.NotNil(t, order)
		assert.Equal(t, "object", order.Type)
		assert.True(t, order.Keys["id"].Required)
		assert.Equal(t, []any{"PENDING", "SHIPPED"}, order.Keys["status"].Valid)
		assert.Equal(t, "PENDING", order.Keys["status"].Default)
		assert.Equal(t, "array", order.Keys["tags"].Type)
		assert.Equal(t, [][]string{{"card", "invoice"}}, order.Oxor)

		user := docs[1].Messages["User"]
		require.NotNil(t, user)
		assert.Equal(t, "object", user.Keys["labels"].Type)
		assert.Empty(t, user.Keys["labels"].Keys)
	})

	t.Run("flags override config", func(t *testing.T) {
		streams, ts := newTestStreams("")
		cmd := newCompileCommand(streams)

		err := cmd.Run(context.Background(), []string{"-enums-as-integers", "-empty", "", "-empty", "regex:^-$", orderPath})
		require.NoError(t, err)

		docs := decodeCompiled(t, ts.out.String())
		require.Len(t, docs, 1)
		status := docs[0].Messages["Order"].Keys["status"]
		assert.Equal(t, []any{0, 1}, status.Valid)
		assert.Equal(t, []string{`""`, "/^-$/"}, status.Empty)
	})

	t.Run("strict mode reports unresolved types", func(t *testing.T) {
		badPath := writeFile(t, dir, "bad.proto", `syntax = "proto3"; message M { Missing m = 1; }`)
		streams, _ := newTestStreams("")
		err := newCompileCommand(streams).Run(context.Background(), []string{"-strict", badPath})

		var unresolved *compiler.UnresolvedTypeError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, "Missing", unresolved.TypeName)
	})

	t.Run("parse errors name the file", func(t *testing.T) {
		brokenPath := writeFile(t, dir, "broken.proto", "message {")
		streams, _ := newTestStreams("")
		err := newCompileCommand(streams).Run(context.Background(), []string{orderPath, brokenPath})

		var parseErr *protobuf.SchemaParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, brokenPath, parseErr.Filename)
	})

	t.Run("missing file", func(t *testing.T) {
		streams, _ := newTestStreams("")
		err := newCompileCommand(streams).Run(context.Background(), []string{filepath.Join(dir, "nope.proto")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read")
	})

	t.Run("no files", func(t *testing.T) {
		streams, _ := newTestStreams("")
		err := newCompileCommand(streams).Run(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no proto files given")
	})

	t.Run("config file", func(t *testing.T) {
		cfgPath := writeFile(t, dir, "protorules.yaml", "compiler:\n  enums_as_integers: true\n")
		streams, ts := newTestStreams("")
		err := newCompileCommand(streams).Run(context.Background(), []string{"-config", cfgPath, orderPath})
		require.NoError(t, err)

		docs := decodeCompiled(t, ts.out.String())
		assert.Equal(t, []any{0, 1}, docs[0].Messages["Order"].Keys["status"].Valid)
	})
}
