package tiffin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags which variant a Result holds.
type Kind int

const (
	KindOK Kind = iota
	// KindDomain is a single server-reported message such as bad credentials,
	// or an HTTP error whose body was not JSON.
	KindDomain
	// KindValidation is a server-reported "errors" array.
	KindValidation
	// KindTransport means no usable response was obtained.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindDomain:
		return "domain_error"
	case KindValidation:
		return "validation_error"
	case KindTransport:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one backend call. Body is the success payload
// verbatim, or the failure value: the server's own JSON error body when it
// sent one, otherwise {"error": "..."}.
type Result struct {
	Kind     Kind
	Status   int
	Body     json.RawMessage
	Messages []string
}

func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Message is the text to show the user: the first message of a failure.
func (r Result) Message() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0]
}

// Err converts a failed Result into an *Error. It returns nil on success.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Status: r.Status, Messages: r.Messages}
}

// Decode unmarshals a successful payload into v.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Failure returns the failure value as a generic JSON object, or nil on
// success.
func (r Result) Failure() map[string]any {
	if r.OK() {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return map[string]any{"error": r.Message()}
	}
	return m
}

type Error struct {
	Kind     Kind
	Status   int
	Messages []string
}

func (e *Error) Error() string {
	msg := "request failed"
	if len(e.Messages) > 0 {
		msg = strings.Join(e.Messages, "; ")
	}
	if e.Kind == KindTransport {
		return "network error: " + msg
	}
	return msg
}

// Failed builds a locally produced failure, e.g. client-side validation.
func Failed(kind Kind, messages ...string) Result {
	var body []byte
	if kind == KindValidation {
		items := make([]map[string]string, 0, len(messages))
		for _, m := range messages {
			items = append(items, map[string]string{"msg": m})
		}
		body, _ = json.Marshal(map[string]any{"errors": items})
	} else {
		body = errorBody(strings.Join(messages, "; "))
	}
	return Result{Kind: kind, Body: body, Messages: messages}
}

// AsFailure returns the Result to report when decoding r failed with err:
// r itself when the call failed, otherwise a transport failure.
func AsFailure(r Result, err error) Result {
	if !r.OK() {
		return r
	}
	return Failed(KindTransport, err.Error())
}

func errorBody(msg string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}

func transportFailure(err error) Result {
	return Result{
		Kind:     KindTransport,
		Body:     errorBody(err.Error()),
		Messages: []string{err.Error()},
	}
}

// classify sorts a received response into exactly one Result kind.
func classify(status int, raw []byte) Result {
	ok := status >= 200 && status < 300
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) == 0 {
		if ok {
			return Result{Kind: KindOK, Status: status, Body: json.RawMessage("{}")}
		}
		return httpFailure(status, raw)
	}

	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		if ok {
			res := transportFailure(fmt.Errorf("decode response: %w", err))
			res.Status = status
			return res
		}
		return httpFailure(status, raw)
	}

	body := json.RawMessage(trimmed)
	obj, isObject := probe.(map[string]any)

	if isObject {
		if errs, found := obj["errors"]; found {
			return Result{Kind: KindValidation, Status: status, Body: body, Messages: validationMessages(errs)}
		}
		if e, found := obj["error"]; found {
			return Result{Kind: KindDomain, Status: status, Body: body, Messages: []string{errorMessage(e, status)}}
		}
	}
	if ok {
		return Result{Kind: KindOK, Status: status, Body: body}
	}

	msg := fmt.Sprintf("HTTP %d", status)
	if isObject {
		if m, _ := obj["message"].(string); m != "" {
			msg = m
		}
	}
	return Result{Kind: KindDomain, Status: status, Body: body, Messages: []string{msg}}
}

func httpFailure(status int, raw []byte) Result {
	msg := fmt.Sprintf("HTTP %d: %s", status, string(raw))
	return Result{
		Kind:     KindDomain,
		Status:   status,
		Body:     errorBody(msg),
		Messages: []string{msg},
	}
}

func errorMessage(v any, status int) string {
	switch e := v.(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if m, _ := e["message"].(string); m != "" {
			return m
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func validationMessages(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, _ := v.(string); s != "" {
			return []string{s}
		}
		return []string{"validation failed"}
	}

	msgs := make([]string, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case string:
			msgs = append(msgs, it)
		case map[string]any:
			if m, _ := it["msg"].(string); m != "" {
				msgs = append(msgs, m)
			} else if m, _ := it["message"].(string); m != "" {
				msgs = append(msgs, m)
			}
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "validation failed")
	}
	return msgs
}
