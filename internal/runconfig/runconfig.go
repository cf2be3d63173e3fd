// Package runconfig defines the flat, explicitly-enumerated run
// configuration accepted by start_run, per the external-interfaces run
// configuration table. Unknown keys are rejected rather than silently
// ignored, following the "flat option struct, unknown keys rejected"
// design note.
package runconfig

import (
	"fmt"
	"sort"
	"time"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
)

// RetryOptions shapes the retry policy for one provider.
type RetryOptions struct {
	MaxAttempts int     `json:"max_attempts"`
	BaseMs      int     `json:"base_ms"`
	CapMs       int     `json:"cap_ms"`
	Factor      float64 `json:"factor"`
	Jitter      float64 `json:"jitter"`
}

// CircuitOptions shapes the circuit breaker for one provider.
type CircuitOptions struct {
	FailureThreshold int `json:"failure_threshold"`
	ResetMs          int `json:"reset_ms"`
	HalfOpenProbes   int `json:"half_open_probes"`
}

// RateOptions shapes the token bucket for one provider.
type RateOptions struct {
	Capacity      float64 `json:"capacity"`
	RefillPerSec  float64 `json:"refill_per_sec"`
}

// BulkheadOptions shapes the concurrency gate for one provider.
type BulkheadOptions struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// Options is the full recognized set of run-configuration keys.
type Options struct {
	SourceProviderID string `json:"source_provider_id"`
	TargetProviderID string `json:"target_provider_id"`

	// Selection is either a predicate description or an explicit list of
	// source artifact identifiers; interpretation is left to the source
	// adapter's enumeration operation.
	Selection any `json:"selection"`

	ItemParallelism int `json:"item_parallelism"`
	OpParallelism   int `json:"op_parallelism"`

	Retry    RetryOptions    `json:"retry"`
	Circuit  CircuitOptions  `json:"circuit"`
	Rate     RateOptions     `json:"rate"`
	Bulkhead BulkheadOptions `json:"bulkhead"`

	RequestTimeoutMs   int `json:"request_timeout_ms"`
	OperationTimeoutMs int `json:"operation_timeout_ms"`
	RunTimeoutMs       int `json:"run_timeout_ms"`

	CompensateOnAbort bool `json:"compensate_on_abort"`
	CheckpointInterval int `json:"checkpoint_interval"`

	// FieldMapping carries whatever the caller needs to construct its
	// FieldMapper; the core treats it as opaque.
	FieldMapping any `json:"field_mapping"`

	// Label is an operator-facing annotation with no semantic effect.
	Label string `json:"label"`
}

// Defaults returns the baseline Options before any caller overrides are
// applied, matching every default named in the run-configuration table.
func Defaults() Options {
	return Options{
		ItemParallelism: 4,
		OpParallelism:   0, // 0 means "equal to layer width"
		Retry: RetryOptions{
			MaxAttempts: 3,
			BaseMs:      100,
			CapMs:       10_000,
			Factor:      2.0,
			Jitter:      0.1,
		},
		Circuit: CircuitOptions{
			FailureThreshold: 5,
			ResetMs:          30_000,
			HalfOpenProbes:   3,
		},
		Rate: RateOptions{
			Capacity:     100,
			RefillPerSec: 50,
		},
		Bulkhead: BulkheadOptions{
			MaxConcurrent: 10,
		},
		RequestTimeoutMs:   10_000,
		OperationTimeoutMs: 60_000,
		RunTimeoutMs:       0, // 0 means no run-level deadline
		CompensateOnAbort:  false,
		CheckpointInterval: 1,
	}
}

// recognizedKeys is the allowlist used by Parse to reject unknown options.
var recognizedKeys = map[string]bool{
	"source_provider_id": true, "target_provider_id": true, "selection": true,
	"item_parallelism": true, "op_parallelism": true,
	"retry.max_attempts": true, "retry.base_ms": true, "retry.cap_ms": true,
	"retry.factor": true, "retry.jitter": true,
	"circuit.failure_threshold": true, "circuit.reset_ms": true, "circuit.half_open_probes": true,
	"rate.capacity": true, "rate.refill_per_sec": true,
	"bulkhead.max_concurrent": true,
	"request_timeout_ms":      true, "operation_timeout_ms": true, "run_timeout_ms": true,
	"compensate_on_abort": true, "checkpoint_interval": true, "field_mapping": true,
	"label": true,
}

// Parse validates raw against the recognized-key allowlist and merges it
// onto Defaults(). A flat dotted-key map (as the run-configuration table
// documents, e.g. "retry.max_attempts") is the only accepted shape; a nested
// map such as {"retry": {...}} is rejected as an unrecognized key.
func Parse(raw map[string]any) (Options, error) {
	opts := Defaults()

	var unknown []string
	for k, v := range raw {
		if !recognizedKeys[k] {
			unknown = append(unknown, k)
			continue
		}
		if err := applyKey(&opts, k, v); err != nil {
			return Options{}, err
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Options{}, migerrors.New(migerrors.ValidationFailed,
			fmt.Sprintf("unrecognized run configuration keys: %v", unknown))
	}

	if opts.SourceProviderID == "" || opts.TargetProviderID == "" {
		return Options{}, migerrors.New(migerrors.ValidationFailed,
			"source_provider_id and target_provider_id are required")
	}

	return opts, nil
}

func applyKey(opts *Options, key string, v any) error {
	switch key {
	case "source_provider_id":
		return assignString(&opts.SourceProviderID, key, v)
	case "target_provider_id":
		return assignString(&opts.TargetProviderID, key, v)
	case "selection":
		opts.Selection = v
		return nil
	case "item_parallelism":
		return assignInt(&opts.ItemParallelism, key, v)
	case "op_parallelism":
		return assignInt(&opts.OpParallelism, key, v)
	case "retry.max_attempts":
		return assignInt(&opts.Retry.MaxAttempts, key, v)
	case "retry.base_ms":
		return assignInt(&opts.Retry.BaseMs, key, v)
	case "retry.cap_ms":
		return assignInt(&opts.Retry.CapMs, key, v)
	case "retry.factor":
		return assignFloat(&opts.Retry.Factor, key, v)
	case "retry.jitter":
		return assignFloat(&opts.Retry.Jitter, key, v)
	case "circuit.failure_threshold":
		return assignInt(&opts.Circuit.FailureThreshold, key, v)
	case "circuit.reset_ms":
		return assignInt(&opts.Circuit.ResetMs, key, v)
	case "circuit.half_open_probes":
		return assignInt(&opts.Circuit.HalfOpenProbes, key, v)
	case "rate.capacity":
		return assignFloat(&opts.Rate.Capacity, key, v)
	case "rate.refill_per_sec":
		return assignFloat(&opts.Rate.RefillPerSec, key, v)
	case "bulkhead.max_concurrent":
		return assignInt(&opts.Bulkhead.MaxConcurrent, key, v)
	case "request_timeout_ms":
		return assignInt(&opts.RequestTimeoutMs, key, v)
	case "operation_timeout_ms":
		return assignInt(&opts.OperationTimeoutMs, key, v)
	case "run_timeout_ms":
		return assignInt(&opts.RunTimeoutMs, key, v)
	case "compensate_on_abort":
		return assignBool(&opts.CompensateOnAbort, key, v)
	case "checkpoint_interval":
		return assignInt(&opts.CheckpointInterval, key, v)
	case "field_mapping":
		opts.FieldMapping = v
		return nil
	case "label":
		return assignString(&opts.Label, key, v)
	}
	return nil
}

func assignString(dst *string, key string, v any) error {
	s, ok := v.(string)
	if !ok {
		return badType(key, "string")
	}
	*dst = s
	return nil
}

func assignBool(dst *bool, key string, v any) error {
	b, ok := v.(bool)
	if !ok {
		return badType(key, "bool")
	}
	*dst = b
	return nil
}

func assignInt(dst *int, key string, v any) error {
	switch n := v.(type) {
	case int:
		*dst = n
	case int64:
		*dst = int(n)
	case float64:
		*dst = int(n)
	default:
		return badType(key, "int")
	}
	return nil
}

func assignFloat(dst *float64, key string, v any) error {
	switch n := v.(type) {
	case float64:
		*dst = n
	case int:
		*dst = float64(n)
	default:
		return badType(key, "float")
	}
	return nil
}

func badType(key, want string) error {
	return migerrors.New(migerrors.ValidationFailed,
		fmt.Sprintf("run configuration key %q must be a %s", key, want))
}

// RequestTimeout returns the per-request timeout as a time.Duration.
func (o Options) RequestTimeout() time.Duration {
	return time.Duration(o.RequestTimeoutMs) * time.Millisecond
}

// OperationTimeout returns the per-operation timeout as a time.Duration.
func (o Options) OperationTimeout() time.Duration {
	return time.Duration(o.OperationTimeoutMs) * time.Millisecond
}

// RunTimeout returns the per-run timeout as a time.Duration, or 0 if unset.
func (o Options) RunTimeout() time.Duration {
	return time.Duration(o.RunTimeoutMs) * time.Millisecond
}
