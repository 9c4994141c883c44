// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mirror

import (
	"context"
	"fmt"
	"sort"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmic/pkg/api"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	zik "github.com/netascode/go-zik"
)

// Result describes one publish
type Result struct {
	// Response is the gNMI SetResponse, nil when nothing was sent
	Response *gnmipb.SetResponse

	// Paths lists the gNMI paths that were updated, sorted
	Paths []string

	// Timestamp is the completion time (nanoseconds since Unix epoch)
	Timestamp int64

	// Attempts counts the Set RPCs issued, retries included
	Attempts int
}

// JSON returns the SetResponse in protobuf JSON form, or "" without one
func (r Result) JSON() string {
	if r.Response == nil {
		return ""
	}
	data, err := protojson.Marshal(r.Response)
	if err != nil {
		return ""
	}
	return string(data)
}

// PublishCache publishes every value held by cache
func (m *Mirror) PublishCache(ctx context.Context, cache *zik.Cache) (Result, error) {
	if cache == nil {
		return Result{}, fmt.Errorf("publish: cache cannot be nil")
	}
	return m.Publish(ctx, cache.Snapshot())
}

// Publish sends values to the target as one gNMI Set of Update operations
//
// Keys are resource paths; each is published at Prefix + path. Values
// without a payload are skipped. An empty publish sends nothing.
//
// Transient failures are retried with Backoff, reconnecting first when the
// channel itself broke.
func (m *Mirror) Publish(ctx context.Context, values map[string]zik.Value) (Result, error) {
	if err := checkContextCancellation(ctx); err != nil {
		return Result{}, err
	}

	setReq, paths, err := m.buildSetRequest(values)
	if err != nil {
		return Result{}, fmt.Errorf("publish: %w", err)
	}
	if len(paths) == 0 {
		m.logger.Debug(ctx, "gNMI mirror has nothing to publish",
			"target", m.Target)
		return Result{Timestamp: time.Now().UnixNano()}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnected(ctx); err != nil {
		return Result{Paths: paths}, fmt.Errorf("publish: connection failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.calculateTotalTimeout())
	defer cancel()

	if data, err := protojson.Marshal(setReq); err == nil {
		m.logger.Debug(ctx, "gNMI Set request",
			"target", m.Target,
			"updates", len(paths),
			"request", string(data))
	}

	result := Result{Paths: paths}
	var lastErr error

	for attempt := 0; attempt <= m.MaxRetries; attempt++ {
		if err := checkContextCancellation(ctx); err != nil {
			return result, fmt.Errorf("publish: %w", err)
		}

		attemptCtx, attemptCancel := m.createAttemptContext(ctx)
		resp, err := m.target.Set(attemptCtx, setReq)
		attemptCancel()
		result.Attempts++

		if err == nil {
			result.Response = resp
			lastErr = nil
			break
		}
		lastErr = err

		if !isTransient(err) || attempt >= m.MaxRetries {
			break
		}

		if isTransportError(err) {
			if reconnectErr := m.reconnect(ctx); reconnectErr != nil {
				m.logger.Error(ctx, "gNMI reconnection failed",
					"operation", "publish",
					"error", reconnectErr.Error())
				return result, fmt.Errorf("publish: reconnection failed: %w", reconnectErr)
			}
		}

		backoff := m.Backoff(attempt)
		m.logger.Warn(ctx, "transient error, retrying",
			"operation", "publish",
			"attempt", attempt+1,
			"max_retries", m.MaxRetries,
			"backoff", backoff,
			"error", err.Error())

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return result, fmt.Errorf("publish: context canceled during backoff: %w", ctx.Err())
		}
	}

	if lastErr != nil {
		fields := []any{"target", m.Target, "error", lastErr.Error()}
		if st, ok := status.FromError(lastErr); ok {
			fields = append(fields, "code", st.Code().String())
		}
		m.logger.Error(ctx, "gNMI Set failed", fields...)
		return result, fmt.Errorf("publish: request failed: %w", lastErr)
	}

	result.Timestamp = time.Now().UnixNano()
	m.logger.Debug(ctx, "gNMI Set response",
		"target", m.Target,
		"results", len(result.Response.GetResponse()))
	return result, nil
}

// buildSetRequest turns values into a SetRequest of Update operations and
// reports the gNMI paths in the order they were added
func (m *Mirror) buildSetRequest(values map[string]zik.Value) (*gnmipb.SetRequest, []string, error) {
	resources := make([]string, 0, len(values))
	for p, v := range values {
		if v.Exists() {
			resources = append(resources, p)
		}
	}
	sort.Strings(resources)

	if len(resources) == 0 {
		return nil, nil, nil
	}

	opts := make([]api.GNMIOption, 0, len(resources))
	paths := make([]string, 0, len(resources))
	for _, resource := range resources {
		if resource == "" || resource[0] != '/' {
			return nil, nil, fmt.Errorf("resource path must start with '/': %q", resource)
		}
		p := m.Prefix + resource
		opts = append(opts, api.Update(api.Path(p), api.Value(values[resource].Raw(), m.Encoding)))
		paths = append(paths, p)
	}

	setReq, err := api.NewSetRequest(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return setReq, paths, nil
}

// calculateTotalTimeout bounds a publish including every retry:
// OperationTimeout + sum(Backoff(0), ..., Backoff(MaxRetries-1))
func (m *Mirror) calculateTotalTimeout() time.Duration {
	total := m.OperationTimeout
	for attempt := 0; attempt < m.MaxRetries; attempt++ {
		total += m.Backoff(attempt)
	}
	return total
}

// createAttemptContext bounds one attempt by OperationTimeout; an earlier
// caller deadline still wins
func (m *Mirror) createAttemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.OperationTimeout)
}

// checkContextCancellation checks if context is canceled or deadline exceeded
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
