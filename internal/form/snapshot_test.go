package form

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		URL:     "https://jobs.example.com/apply/123",
		Company: "Acme",
		Title:   "Backend Engineer",
		Fields: []SnapshotField{
			{ID: "f1", Label: "Why do you want to work here? *", MaxLength: 500, Extra: map[string]string{"input_type": "textarea"}},
			{ID: "f2", Label: "Phone", Value: "555-0100"},
		},
	}
}

func TestListFieldsPreservesOrder(t *testing.T) {
	a := NewSnapshotAdapter(sampleSnapshot())

	ids, err := a.ListFields()
	if err != nil {
		t.Fatalf("ListFields: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"f1", "f2"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestReadContext(t *testing.T) {
	a := NewSnapshotAdapter(sampleSnapshot())

	fc, err := a.ReadContext("f1")
	if err != nil {
		t.Fatalf("ReadContext: %v", err)
	}
	if fc.Label != "Why do you want to work here? *" {
		t.Errorf("Label = %q", fc.Label)
	}
	if fc.MaxLength != 500 {
		t.Errorf("MaxLength = %d, want 500", fc.MaxLength)
	}
	if fc.Extra["input_type"] != "textarea" {
		t.Errorf("Extra = %v, want input_type carried through", fc.Extra)
	}

	if _, err := a.ReadContext("missing"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestSetValueAndNotifyChanged(t *testing.T) {
	a := NewSnapshotAdapter(sampleSnapshot())

	if err := a.SetValue("f1", "Because of the mission."); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := a.NotifyChanged("f1"); err != nil {
		t.Fatalf("NotifyChanged: %v", err)
	}

	snap := a.Snapshot()
	if snap.Fields[0].Value != "Because of the mission." {
		t.Errorf("Value = %q", snap.Fields[0].Value)
	}
	if !reflect.DeepEqual(snap.Fields[0].Events, []string{"input", "change", "blur"}) {
		t.Errorf("Events = %v", snap.Fields[0].Events)
	}
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "form.json")
	out := filepath.Join(dir, "filled.json")

	a := NewSnapshotAdapter(sampleSnapshot())
	if err := a.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadSnapshot(in)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if err := loaded.SetValue("f1", "filled"); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Save(out); err != nil {
		t.Fatalf("Save filled: %v", err)
	}

	reloaded, err := LoadSnapshot(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	fc, err := reloaded.ReadContext("f1")
	if err != nil {
		t.Fatal(err)
	}
	if fc.Value != "filled" {
		t.Errorf("Value after round trip = %q", fc.Value)
	}
}

func TestLoadSnapshotBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestJobFromMetadata(t *testing.T) {
	a := NewSnapshotAdapter(sampleSnapshot())
	job := a.Job()
	if job.Company != "Acme" || job.Title != "Backend Engineer" {
		t.Errorf("job = %+v", job)
	}
}
