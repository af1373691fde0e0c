package form

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/amishk599/applypilot/internal/model"
)

// Snapshot is the JSON wire format hosts use to hand a captured form to the
// pipeline. Browser-extension, webview, and in-app-browser hosts all export
// the same shape, so one adapter serves every platform.
type Snapshot struct {
	URL     string          `json:"url,omitempty"`
	Company string          `json:"company,omitempty"`
	Title   string          `json:"title,omitempty"`
	Fields  []SnapshotField `json:"fields"`
}

// SnapshotField is one form field as captured by the host.
type SnapshotField struct {
	ID             string   `json:"id"`
	Label          string   `json:"label,omitempty"`
	Placeholder    string   `json:"placeholder,omitempty"`
	Heading        string   `json:"heading,omitempty"`
	HelpText       string   `json:"help_text,omitempty"`
	Required       bool     `json:"required,omitempty"`
	AriaRequired   bool     `json:"aria_required,omitempty"`
	ContainerClass string   `json:"container_class,omitempty"`
	MaxLength      int      `json:"max_length,omitempty"`
	Value          string   `json:"value,omitempty"`
	Events         []string `json:"events,omitempty"` // change notifications to replay, appended by NotifyChanged
	// Extra holds host-specific attributes (input type, autocomplete hints,
	// section ids) that the pipeline carries along but never interprets.
	Extra map[string]string `json:"extra,omitempty"`
}

// SnapshotAdapter implements model.FieldAdapter over an in-memory snapshot.
// SetValue and NotifyChanged mutate the snapshot; Save writes it back so the
// host can replay the fills and events into the live form.
type SnapshotAdapter struct {
	snapshot Snapshot
	index    map[string]int
}

// LoadSnapshot reads a snapshot JSON file and wraps it in an adapter.
func LoadSnapshot(path string) (*SnapshotAdapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse form snapshot: %w", err)
	}
	return NewSnapshotAdapter(snap), nil
}

// NewSnapshotAdapter wraps an already-decoded snapshot.
func NewSnapshotAdapter(snap Snapshot) *SnapshotAdapter {
	a := &SnapshotAdapter{snapshot: snap, index: make(map[string]int, len(snap.Fields))}
	for i, f := range snap.Fields {
		a.index[f.ID] = i
	}
	return a
}

// ListFields returns field ids in document order.
func (a *SnapshotAdapter) ListFields() ([]string, error) {
	ids := make([]string, len(a.snapshot.Fields))
	for i, f := range a.snapshot.Fields {
		ids[i] = f.ID
	}
	return ids, nil
}

// ReadContext returns the text fragments and flags for one field.
func (a *SnapshotAdapter) ReadContext(locator string) (model.FieldContext, error) {
	i, ok := a.index[locator]
	if !ok {
		return model.FieldContext{}, fmt.Errorf("unknown field %q", locator)
	}
	f := a.snapshot.Fields[i]
	return model.FieldContext{
		Label:          f.Label,
		Placeholder:    f.Placeholder,
		Heading:        f.Heading,
		HelpText:       f.HelpText,
		Required:       f.Required,
		AriaRequired:   f.AriaRequired,
		ContainerClass: f.ContainerClass,
		MaxLength:      f.MaxLength,
		Value:          f.Value,
		Extra:          f.Extra,
	}, nil
}

// SetValue sets the field's value in the snapshot.
func (a *SnapshotAdapter) SetValue(locator, value string) error {
	i, ok := a.index[locator]
	if !ok {
		return fmt.Errorf("unknown field %q", locator)
	}
	a.snapshot.Fields[i].Value = value
	return nil
}

// NotifyChanged appends the host's standard event sequence for the field.
func (a *SnapshotAdapter) NotifyChanged(locator string) error {
	i, ok := a.index[locator]
	if !ok {
		return fmt.Errorf("unknown field %q", locator)
	}
	a.snapshot.Fields[i].Events = append(a.snapshot.Fields[i].Events, "input", "change", "blur")
	return nil
}

// Job derives JobData from the snapshot's page metadata.
func (a *SnapshotAdapter) Job() model.JobData {
	return model.JobData{
		Company: a.snapshot.Company,
		Title:   a.snapshot.Title,
		URL:     a.snapshot.URL,
	}
}

// Snapshot returns the current (possibly filled) snapshot.
func (a *SnapshotAdapter) Snapshot() Snapshot {
	return a.snapshot
}

// Save writes the snapshot back to path so the host can apply it.
func (a *SnapshotAdapter) Save(path string) error {
	data, err := json.MarshalIndent(a.snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal form snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write form snapshot: %w", err)
	}
	return nil
}
