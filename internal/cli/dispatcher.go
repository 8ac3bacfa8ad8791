package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/yankhist/internal/candidate"
	"github.com/roach88/yankhist/internal/clock"
	"github.com/roach88/yankhist/internal/controller"
	"github.com/roach88/yankhist/internal/yank"
)

// maxRequestSize bounds a single request line.
const maxRequestSize = 64 << 20

// defaultGetCount is the count used by get when the caller passes none: the
// newest entry.
const defaultGetCount = -1

// Request is one line read by the dispatcher. Params are positional. A
// request without an id is a notification and gets no response.
type Request struct {
	ID     json.RawMessage   `json:"id,omitempty"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// Response answers a request with the same id.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *CLIError       `json:"error,omitempty"`
}

// unknownMethodError is returned for methods the dispatcher does not serve.
type unknownMethodError struct{ method string }

func (e *unknownMethodError) Error() string {
	return fmt.Sprintf("unknown method %q", e.method)
}

// paramError reports params that do not decode.
func paramError(method string, err error) error {
	return &controller.InputError{Field: method + " params", Message: err.Error()}
}

// CompletionRequest are the optional params of the complete method.
type CompletionRequest struct {
	Count           int     `json:"count"`
	MaxAbbrWidth    int     `json:"maxAbbrWidth"`
	Columns         int     `json:"columns"`
	CtrlCharHlGroup *string `json:"ctrlCharHlGroup"`
}

// BrowseRequest are the optional params of the browse method.
type BrowseRequest struct {
	Count         int     `json:"count"`
	Prefix        string  `json:"prefix"`
	HeaderHlGroup *string `json:"headerHlGroup"`
}

// OptionsResult is returned by updateOptions.
type OptionsResult struct {
	Warnings []string `json:"warnings"`
}

// YankResult is returned by onTextYankPost.
type YankResult struct {
	Recorded bool        `json:"recorded"`
	Entry    *yank.Entry `json:"entry,omitempty"`
}

// DeleteResponse is returned by delete.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// Dispatcher serves editor requests over a line-delimited JSON stream.
type Dispatcher struct {
	ctrl  *controller.Controller
	clock clock.Clock
	log   *slog.Logger
}

// NewDispatcher returns a dispatcher driving ctrl.
func NewDispatcher(ctrl *controller.Controller, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{ctrl: ctrl, clock: clk, log: logger.With("component", "dispatcher")}
}

// Serve handles requests from r until r is exhausted or ctx is done.
// Requests are handled one at a time, in order.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	// On cancellation the reader may stay blocked in Scan until r is closed;
	// for stdin that is process exit.
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
		for sc.Scan() {
			line := bytes.Clone(sc.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			if resp, reply := d.handleLine(ctx, line); reply {
				if err := enc.Encode(resp); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
			}
		}
	}
}

func (d *Dispatcher) handleLine(ctx context.Context, line []byte) (Response, bool) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		d.log.Warn("malformed request", "error", err)
		return Response{
			ID:    json.RawMessage("null"),
			Error: &CLIError{Code: ErrCodeInput, Message: "malformed request: " + err.Error()},
		}, true
	}

	result, err := d.Handle(ctx, req)
	if err != nil {
		d.log.Warn("request failed", "method", req.Method, "error", err)
	}
	if len(req.ID) == 0 {
		return Response{}, false
	}
	resp := Response{ID: req.ID, Result: result}
	if err != nil {
		resp.Result = nil
		resp.Error = &CLIError{Code: errorCode(err), Message: err.Error()}
	}
	return resp, true
}

// Handle runs a single request.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case "updateOptions":
		warnings, err := d.ctrl.UpdateOptions()
		if err != nil {
			return nil, err
		}
		res := OptionsResult{Warnings: make([]string, len(warnings))}
		for i, w := range warnings {
			res.Warnings[i] = w.String()
		}
		return res, nil

	case "get":
		count := defaultGetCount
		if err := optionalParam(req, 0, &count); err != nil {
			return nil, err
		}
		entries, err := d.ctrl.Get(ctx, count)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []yank.Entry{}
		}
		return entries, nil

	case "delete":
		var ids []int64
		if err := requiredParam(req, 0, &ids); err != nil {
			return nil, err
		}
		return DeleteResponse{Deleted: d.ctrl.Delete(ids)}, nil

	case "onTextYankPost":
		var ev controller.Event
		if err := requiredParam(req, 0, &ev); err != nil {
			return nil, err
		}
		entry, ok, err := d.ctrl.OnTextYankPost(ev)
		if err != nil {
			return nil, err
		}
		if !ok {
			return YankResult{}, nil
		}
		return YankResult{Recorded: true, Entry: &entry}, nil

	case "complete":
		var p CompletionRequest
		if err := optionalParam(req, 0, &p); err != nil {
			return nil, err
		}
		params := candidate.DefaultCompletionParams()
		params.MaxAbbrWidth = p.MaxAbbrWidth
		if p.Columns > 0 {
			params.Columns = p.Columns
		}
		if p.CtrlCharHlGroup != nil {
			params.CtrlCharHLGroup = *p.CtrlCharHlGroup
		}
		entries, err := d.ctrl.Get(ctx, -max(p.Count, 0))
		if err != nil {
			return nil, err
		}
		return candidate.Completion(entries, d.clock.Now(), params), nil

	case "browse":
		var p BrowseRequest
		if err := optionalParam(req, 0, &p); err != nil {
			return nil, err
		}
		params := candidate.DefaultBrowseParams()
		params.Prefix = p.Prefix
		if p.HeaderHlGroup != nil {
			params.HeaderHLGroup = *p.HeaderHlGroup
		}
		entries, err := d.ctrl.Get(ctx, -max(p.Count, 0))
		if err != nil {
			return nil, err
		}
		return candidate.Browse(entries, d.clock.Now(), params), nil
	}
	return nil, &unknownMethodError{method: req.Method}
}

// optionalParam decodes params[i] into v when present and not null.
func optionalParam(req Request, i int, v any) error {
	if i >= len(req.Params) || string(req.Params[i]) == "null" {
		return nil
	}
	if err := json.Unmarshal(req.Params[i], v); err != nil {
		return paramError(req.Method, err)
	}
	return nil
}

// requiredParam decodes params[i] into v.
func requiredParam(req Request, i int, v any) error {
	if i >= len(req.Params) || string(req.Params[i]) == "null" {
		return paramError(req.Method, errors.New("missing argument"))
	}
	return optionalParam(req, i, v)
}
