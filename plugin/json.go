package plugin

import (
	"context"
	"encoding/json"
	"io"

	"github.com/nickyhof/CommitView/core"
)

// Message is one line written by the JSON plugin. Its shape matches the
// server's response envelope.
type Message struct {
	Success bool   `json:"success"`
	Type    string `json:"type"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// ViewResult is the payload of a view message.
type ViewResult struct {
	Frame
	Force bool `json:"force"`
}

// JSON renders views as newline-delimited JSON messages.
type JSON struct{}

func NewJSON() *JSON { return &JSON{} }

func (p *JSON) Name() string                { return "json" }
func (p *JSON) SelectMode() core.SelectMode { return core.ToggleMode }
func (p *JSON) Delete() error               { return nil }

func (p *JSON) Create(ctx context.Context, target io.Writer, view core.ViewHandle, hidden []string, force bool) error {
	frame, err := Materialize(ctx, view, hidden)
	if err != nil {
		return err
	}
	return writeMessage(target, Message{
		Success: true,
		Type:    "view",
		Result:  ViewResult{Frame: frame, Force: force},
	})
}

func (p *JSON) Resize(ctx context.Context, target io.Writer) error {
	return writeMessage(target, Message{Success: true, Type: "resize"})
}

func (p *JSON) ReportFailure(target io.Writer, err error) {
	writeMessage(target, Message{Success: false, Type: "view", Error: err.Error()})
}

func writeMessage(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
