package compiler

import (
	"github.com/platinummonkey/protorules/pkg/api/protobuf"
	"github.com/platinummonkey/protorules/pkg/observability"
)

// DefaultMaxDepth bounds how deep message expansion may nest
const DefaultMaxDepth = 64

// CycleGuard selects how recursive message references are broken
type CycleGuard int

const (
	// CycleGuardParent stops expanding a message field whose type is the
	// message that is compiling the current one. Cycles through three or
	// more messages are only stopped by the depth limit.
	CycleGuardParent CycleGuard = iota

	// CycleGuardAncestors stops expanding a message field whose type is any
	// message in the chain above the current one.
	CycleGuardAncestors
)

func (g CycleGuard) String() string {
	switch g {
	case CycleGuardAncestors:
		return "ancestors"
	default:
		return "parent"
	}
}

// Option configures a Compiler
type Option func(*options)

type options struct {
	emptyMatchers   []any
	enumsAsIntegers bool
	strictTypes     bool
	cycleGuard      CycleGuard
	maxDepth        int
	filename        string
	logger          *observability.Logger
	metrics         *observability.Metrics
}

func defaultOptions() options {
	return options{
		cycleGuard: CycleGuardParent,
		maxDepth:   DefaultMaxDepth,
		filename:   protobuf.DefaultFilename,
		logger:     observability.NewNopLogger(),
	}
}

// WithEmptyMatchers attaches matchers to every field rule that define which
// values count as absent. Calling it with no matchers leaves emptiness alone.
func WithEmptyMatchers(matchers ...any) Option {
	return func(o *options) {
		o.emptyMatchers = append([]any(nil), matchers...)
	}
}

// WithEnumsAsIntegers makes enum fields accept declared numbers instead of names
func WithEnumsAsIntegers(enabled bool) Option {
	return func(o *options) {
		o.enumsAsIntegers = enabled
	}
}

// WithStrictTypes turns unresolved field types into an *UnresolvedTypeError
func WithStrictTypes(enabled bool) Option {
	return func(o *options) {
		o.strictTypes = enabled
	}
}

// WithCycleGuard selects the recursion guard
func WithCycleGuard(guard CycleGuard) Option {
	return func(o *options) {
		o.cycleGuard = guard
	}
}

// WithMaxDepth bounds message nesting. Values below 1 restore the default.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}
		o.maxDepth = depth
	}
}

// WithFilename sets the name reported in parse errors
func WithFilename(name string) Option {
	return func(o *options) {
		if name != "" {
			o.filename = name
		}
	}
}

// WithLogger sets the logger used for debug output and unresolved type warnings
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records compilation metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}
