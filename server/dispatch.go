package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/observe"
)

const toolNamespace = "events"

// Dispatcher runs tool calls against the gate.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Each call resolves its credential exactly once, after the tool name and
//     arguments are known to be well formed.
//   - The resolved caller is passed to the gate explicitly.
type Dispatcher struct {
	gate     *events.Gate
	resolver *auth.Resolver
	execute  observe.ExecuteFunc
}

// NewDispatcher creates a Dispatcher. A nil middleware disables telemetry.
func NewDispatcher(gate *events.Gate, resolver *auth.Resolver, mw *observe.Middleware) *Dispatcher {
	d := &Dispatcher{gate: gate, resolver: resolver}
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, nil)
	}
	d.execute = mw.Wrap(d.run)
	return d
}

// Call runs the named tool with raw JSON arguments on behalf of the holder
// of credential. An empty credential means none was presented. The
// credential is resolved, and so audited, before the name and arguments are
// checked.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage, credential string) (any, error) {
	caller := d.resolver.Resolve(ctx, credential)
	ctx = auth.WithCaller(ctx, caller)
	ctx = observe.WithCallerID(ctx, caller.CallerID)

	input, err := decodeArgs(name, args)
	if err != nil {
		return nil, err
	}

	result, err := d.execute(ctx, observe.ToolMeta{Namespace: toolNamespace, Name: name}, input)
	if err != nil {
		return nil, err
	}
	if lookup, ok := result.(events.Lookup); ok {
		ev, found := lookup.Event()
		if !found {
			return nil, ErrEventNotFound
		}
		return eventDetails{Event: ev}, nil
	}
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, _ observe.ToolMeta, input any) (any, error) {
	caller := auth.CallerFromContext(ctx)
	switch in := input.(type) {
	case searchArgs:
		evs, err := d.gate.Search(ctx, in.request(), caller)
		if err != nil {
			return nil, err
		}
		return newEventList(evs), nil
	case detailsArgs:
		return d.gate.GetByID(ctx, in.EventID, caller)
	case timelineArgs:
		evs, err := d.gate.GetServiceTimeline(ctx, in.ServiceID, in.dateRange(), in.Limit, caller)
		if err != nil {
			return nil, err
		}
		return newEventList(evs), nil
	case impactArgs:
		summary, err := d.gate.GetImpactSummary(ctx, in.ServiceID, in.dateRange(), caller)
		if err != nil {
			return nil, err
		}
		return impactResult{summary}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTool, input)
	}
}

func decodeArgs(name string, raw json.RawMessage) (any, error) {
	switch name {
	case ToolSearchEvents:
		var a searchArgs
		if err := unmarshalArgs(raw, &a); err != nil {
			return nil, err
		}
		if a.Query == "" {
			return nil, fmt.Errorf("%w: query is required", ErrInvalidArguments)
		}
		return a, nil
	case ToolGetEventDetails:
		var a detailsArgs
		if err := unmarshalArgs(raw, &a); err != nil {
			return nil, err
		}
		if a.EventID == "" {
			return nil, fmt.Errorf("%w: eventId is required", ErrInvalidArguments)
		}
		return a, nil
	case ToolGetServiceTimeline:
		var a timelineArgs
		if err := unmarshalArgs(raw, &a); err != nil {
			return nil, err
		}
		if a.ServiceID == "" {
			return nil, fmt.Errorf("%w: serviceId is required", ErrInvalidArguments)
		}
		return a, nil
	case ToolGetImpactSummary:
		var a impactArgs
		if err := unmarshalArgs(raw, &a); err != nil {
			return nil, err
		}
		if a.ServiceID == "" {
			return nil, fmt.Errorf("%w: serviceId is required", ErrInvalidArguments)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

func unmarshalArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
