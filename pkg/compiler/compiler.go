package compiler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/protorules/pkg/api/protobuf"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/rules"
)

var compilerTracer = otel.Tracer("protorules/compiler")

// Compiler turns protobuf schemas into validation rules. A Compiler holds
// only its options and is safe for concurrent use.
type Compiler struct {
	opts options
}

// New creates a Compiler
func New(opts ...Option) *Compiler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Compiler{opts: o}
}

// Compile parses source and compiles every top-level message with a
// one-off Compiler.
func Compile(source string, opts ...Option) (*ValidatorSet, error) {
	return New(opts...).Compile(context.Background(), source)
}

// Compile parses source and returns one validator per top-level message.
// Parse failures are returned as *protobuf.SchemaParseError.
func (c *Compiler) Compile(ctx context.Context, source string) (*ValidatorSet, error) {
	ctx, span := compilerTracer.Start(ctx, "compiler.Compile",
		trace.WithAttributes(attribute.String("filename", c.opts.filename)),
	)
	defer span.End()

	start := time.Now()
	doc, err := protobuf.ParseSchema(c.opts.filename, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse schema")
		c.opts.metrics.RecordCompilation("parse_error", time.Since(start), 0)
		observability.UpdateLoggerWithTraceContext(ctx, c.opts.logger).
			WithError(err).
			Debug("schema parse failed")
		return nil, err
	}

	set, err := c.CompileDocument(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compile schema")
		return nil, err
	}
	span.SetStatus(codes.Ok, fmt.Sprintf("compiled %d messages", set.Len()))
	return set, nil
}

// CompileDocument compiles an already parsed schema document
func (c *Compiler) CompileDocument(ctx context.Context, doc *protobuf.RootNode) (*ValidatorSet, error) {
	ctx, span := compilerTracer.Start(ctx, "compiler.CompileDocument",
		trace.WithAttributes(attribute.Int("messages", len(doc.Messages))),
	)
	defer span.End()

	start := time.Now()
	b := &builder{
		opts:   c.opts,
		doc:    doc,
		logger: observability.UpdateLoggerWithTraceContext(ctx, c.opts.logger),
	}

	validators := make(map[string]*rules.Schema, len(doc.Messages))
	for _, msg := range doc.Messages {
		if err := ctx.Err(); err != nil {
			c.opts.metrics.RecordCompilation("error", time.Since(start), 0)
			return nil, err
		}
		rule, err := b.message(msg, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to compile message")
			c.opts.metrics.RecordCompilation("error", time.Since(start), 0)
			b.logger.WithError(err).WithField("message", msg.Name).Debug("compilation failed")
			return nil, err
		}
		validators[msg.Name] = rule
	}

	set := newValidatorSet(validators, c.opts.metrics)
	span.SetAttributes(
		attribute.Int("unresolved_fields", b.unresolved),
		attribute.Int("cycle_breaks", b.cycleBreaks),
	)
	c.opts.metrics.RecordCompilation("success", time.Since(start), set.Len())
	b.logger.WithFields(map[string]interface{}{
		"validators":        set.Len(),
		"unresolved_fields": b.unresolved,
		"cycle_breaks":      b.cycleBreaks,
	}).Debug("schema compiled")
	return set, nil
}

// builder carries the state of one CompileDocument call
type builder struct {
	opts        options
	doc         *protobuf.RootNode
	logger      *observability.Logger
	unresolved  int
	cycleBreaks int
}

// message compiles msg into an object rule. chain holds the messages whose
// compilation led here, outermost first, not including msg.
func (b *builder) message(msg *protobuf.MessageNode, chain []*protobuf.MessageNode) (*rules.Schema, error) {
	if depth := len(chain) + 1; depth > b.opts.maxDepth {
		return nil, &RecursionLimitError{MessageName: msg.Name, Depth: b.opts.maxDepth}
	}

	keys := make([]rules.Key, 0, len(msg.Fields))
	for _, field := range msg.Fields {
		rule, err := b.field(msg, field, chain)
		if err != nil {
			return nil, err
		}
		keys = append(keys, rules.K(field.Name, rule))
	}

	obj := rules.Object().Keys(keys...)
	for _, group := range oneofGroups(msg) {
		obj = obj.Oxor(group...)
	}
	return obj, nil
}

func (b *builder) field(msg *protobuf.MessageNode, field *protobuf.FieldNode, chain []*protobuf.MessageNode) (*rules.Schema, error) {
	rt := resolveType(b.doc, msg, field.Type)

	var rule *rules.Schema
	switch rt.kind {
	case kindUnresolved:
		if b.opts.strictTypes {
			return nil, &UnresolvedTypeError{
				MessageName: msg.Name,
				FieldName:   field.Name,
				TypeName:    field.Type,
			}
		}
		b.unresolved++
		b.opts.metrics.RecordUnresolvedField()
		b.logger.WithFields(map[string]interface{}{
			"message": msg.Name,
			"field":   field.Name,
			"type":    field.Type,
		}).Warn("unresolved field type, field is not validated")
		return rules.Any(), nil
	case kindMessage:
		if b.breaksCycle(rt.message, chain) {
			b.cycleBreaks++
			b.opts.metrics.RecordCycleBreak()
			rule = rules.Any()
			break
		}
		nested, err := b.message(rt.message, append(slices.Clip(chain), msg))
		if err != nil {
			return nil, err
		}
		rule = nested
	default:
		rule = baseRule(rt, b.opts.enumsAsIntegers)
	}

	if field.HasDefault() {
		if value, ok := coerceDefault(rt, field.Default.Value, b.opts.enumsAsIntegers); ok {
			rule = rule.Default(value)
		} else {
			b.logger.WithFields(map[string]interface{}{
				"message": msg.Name,
				"field":   field.Name,
				"default": field.Default.Value,
			}).Warn("default value does not match field type, ignoring it")
		}
	}
	if field.Repeated {
		rule = rules.Array().Items(rule)
	}
	if field.Required {
		rule = rule.Required()
	}
	if len(b.opts.emptyMatchers) > 0 {
		rule = rule.Empty(b.opts.emptyMatchers...)
	}
	return rule, nil
}

// breaksCycle reports whether expanding target from the current message
// should stop. chain ends with the parent of the current message.
func (b *builder) breaksCycle(target *protobuf.MessageNode, chain []*protobuf.MessageNode) bool {
	if len(chain) == 0 {
		return false
	}
	if b.opts.cycleGuard == CycleGuardAncestors {
		return slices.Contains(chain, target)
	}
	return chain[len(chain)-1] == target
}

// oneofGroups returns the field names of each oneof label with at least two
// members, in declaration order.
func oneofGroups(msg *protobuf.MessageNode) [][]string {
	var order []string
	members := make(map[string][]string)
	for _, field := range msg.Fields {
		if field.OneOf == "" {
			continue
		}
		if _, seen := members[field.OneOf]; !seen {
			order = append(order, field.OneOf)
		}
		members[field.OneOf] = append(members[field.OneOf], field.Name)
	}

	var groups [][]string
	for _, label := range order {
		if len(members[label]) >= 2 {
			groups = append(groups, members[label])
		}
	}
	return groups
}
