package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/practicum/internal/question"
)

// Request kinds.
const (
	KindNext  = "next"
	KindFetch = "fetch"
)

// Response kinds.
const (
	KindQuestion = "question"
	KindNotFound = "not_found"
	KindError    = "error"
	KindNotice   = "notice"
)

// Request is an incoming play frame. Kind selects which fields apply:
// next uses Type, Set and Difficulty; fetch uses ID.
type Request struct {
	Kind       string `json:"kind"`
	Type       string `json:"type,omitempty"`
	Set        string `json:"set,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	ID         string `json:"id,omitempty"`
}

type Response struct {
	Kind     string         `json:"kind"`
	Question *question.View `json:"question,omitempty"`
	Error    string         `json:"error,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// Picker is the question source a play connection draws from.
type Picker interface {
	Generate(qtype, setID string, bucket question.Bucket) (question.View, bool)
	Fetch(id string) (*question.Question, bool)
}

// DecodeRequest parses a frame, rejecting unknown fields and trailing data.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("decode frame: %w", err)
	}
	if dec.More() {
		return Request{}, fmt.Errorf("decode frame: trailing data")
	}
	return req, nil
}

// Answer resolves a request against the picker.
func Answer(p Picker, req Request) Response {
	switch req.Kind {
	case KindNext:
		bucket, ok := question.ParseBucket(req.Difficulty)
		if !ok {
			return Response{Kind: KindError, Error: fmt.Sprintf("unknown difficulty %q", req.Difficulty)}
		}
		qtype := req.Type
		if qtype == "" {
			qtype = question.AnyType
		}
		v, ok := p.Generate(qtype, req.Set, bucket)
		if !ok {
			return Response{Kind: KindNotFound}
		}
		return Response{Kind: KindQuestion, Question: &v}
	case KindFetch:
		if req.ID == "" {
			return Response{Kind: KindError, Error: "id is required"}
		}
		q, ok := p.Fetch(req.ID)
		if !ok {
			return Response{Kind: KindNotFound}
		}
		v := q.View()
		return Response{Kind: KindQuestion, Question: &v}
	default:
		return Response{Kind: KindError, Error: fmt.Sprintf("unknown kind %q", req.Kind)}
	}
}

// Handle decodes one raw frame and answers it.
func Handle(p Picker, data []byte) Response {
	req, err := DecodeRequest(data)
	if err != nil {
		return Response{Kind: KindError, Error: "malformed request"}
	}
	return Answer(p, req)
}
