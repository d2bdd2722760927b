// Package main provides a TCP viewer session server for CommitView.
package main

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Operations accepted by the server.
const (
	OpSet        = "set"
	OpRemove     = "remove"
	OpFilter     = "filter"
	OpToggle     = "toggle"
	OpPivot      = "pivot"
	OpUnpivot    = "unpivot"
	OpAggregate  = "aggregate"
	OpRender     = "render"
	OpSave       = "save"
	OpRestore    = "restore"
	OpLayoutSave = "layout.save"
	OpLayoutLoad = "layout.load"
	OpLayouts    = "layouts"
	OpHistory    = "history"
	OpLoad       = "load"
)

var errInvalidRequest = errors.New("invalid request: expected a JSON object")

// Request is one operation sent by the client on its own line.
type Request struct {
	Op string `json:"op"`

	// Name is an attribute name for set/remove and a layout name for the
	// layout operations.
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
	Column string `json:"column,omitempty"`

	// Target is the list pivot and unpivot act on: row-pivots (default),
	// column-pivots or sort.
	Target string `json:"target,omitempty"`
	Index  int    `json:"index,omitempty"`
	Shift  bool   `json:"shift,omitempty"`

	Path        string            `json:"path,omitempty"`
	IndexColumn string            `json:"index_column,omitempty"`
	Rev         string            `json:"rev,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Response represents the server's answer to a request. View messages
// pushed by the json plugin share this envelope with type "view".
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// AuthResponse is the result of a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// TransactionResponse describes a layout commit.
type TransactionResponse struct {
	Id      string    `json:"id"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// LoadResponse describes a dataset loaded into the primary viewer.
type LoadResponse struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	TimeMs  float64  `json:"time_ms"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return req, errInvalidRequest
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	if req.Op == "" {
		return req, errors.New("invalid request: missing op")
	}
	return req, nil
}

func okResponse(op string, result any) Response {
	resp := Response{Success: true, Type: op}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return errResponse(op, err)
		}
		resp.Result = data
	}
	return resp
}

func errResponse(op string, err error) Response {
	return Response{Success: false, Type: op, Error: err.Error()}
}
