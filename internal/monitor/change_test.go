package monitor

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
)

func catalogOf(products ...*catalog.Product) *catalog.Catalog {
	return &catalog.Catalog{Categories: []*catalog.Category{{ID: "paint", Name: "Краски", Products: products}}}
}

func TestDiffFirstRun(t *testing.T) {
	next := catalogOf(
		&catalog.Product{ID: "paint-1", Name: "ИЗК-1", URL: "https://stone-technology.info/izk-1"},
		&catalog.Product{ID: "paint-2", Name: "ИЗК-2"},
	)
	r := Diff(nil, next)
	if r.Added != 2 || r.Modified != 0 || r.Removed != 0 {
		t.Fatalf("report = %+v", r)
	}
	if r.Changes[1].Key != "id:paint-2" {
		t.Errorf("key without URL = %q", r.Changes[1].Key)
	}
}

func TestDiff(t *testing.T) {
	prev := catalogOf(
		&catalog.Product{ID: "paint-1", Name: "ИЗК-1", URL: "https://x/izk-1", Consumption: "0,2 л/м²"},
		&catalog.Product{ID: "paint-2", Name: "ИЗК-2", URL: "https://x/izk-2"},
		&catalog.Product{ID: "paint-3", Name: "ИЗК-3", URL: "https://x/izk-3",
			TechnicalCharacteristics: map[string]string{"Цвет": "белый"}},
	)
	next := catalogOf(
		// reordered: the sequence ID changed but the URL did not
		&catalog.Product{ID: "paint-1", Name: "ИЗК-2", URL: "https://x/izk-2"},
		&catalog.Product{ID: "paint-2", Name: "ИЗК-1", URL: "https://x/izk-1", Consumption: "0,3 л/м²"},
		&catalog.Product{ID: "paint-3", Name: "ИЗК-4", URL: "https://x/izk-4"},
	)

	r := Diff(prev, next)
	if r.Added != 1 || r.Modified != 1 || r.Removed != 1 {
		t.Fatalf("report = %+v", r)
	}

	want := []Change{
		{Key: "https://x/izk-1", ProductID: "paint-2", Type: ChangeModified, Field: "consumption", OldValue: "0,2 л/м²", NewValue: "0,3 л/м²"},
		{Key: "https://x/izk-4", ProductID: "paint-3", Type: ChangeAdded},
		{Key: "https://x/izk-3", ProductID: "paint-3", Type: ChangeRemoved},
	}
	if len(r.Changes) != len(want) {
		t.Fatalf("changes = %+v", r.Changes)
	}
	for i, c := range want {
		if r.Changes[i] != c {
			t.Errorf("change %d = %+v, want %+v", i, r.Changes[i], c)
		}
	}
}

func TestDiffCharacteristics(t *testing.T) {
	prev := catalogOf(&catalog.Product{ID: "p-1", URL: "u", TechnicalCharacteristics: map[string]string{"a": "1", "b": "2"}})
	same := catalogOf(&catalog.Product{ID: "p-1", URL: "u", TechnicalCharacteristics: map[string]string{"b": "2", "a": "1"}})
	if r := Diff(prev, same); !r.Empty() {
		t.Errorf("map order should not matter: %+v", r.Changes)
	}

	changed := catalogOf(&catalog.Product{ID: "p-1", URL: "u", TechnicalCharacteristics: map[string]string{"a": "1"}})
	r := Diff(prev, changed)
	if r.Modified != 1 || r.Changes[0].Field != "technical_characteristics" {
		t.Errorf("report = %+v", r)
	}
}

func TestReportLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	Diff(nil, catalogOf(&catalog.Product{ID: "p-1"})).Log(logger)

	out := buf.String()
	if !strings.Contains(out, "component=change_monitor") || !strings.Contains(out, "added=1") {
		t.Errorf("log = %q", out)
	}
	if strings.Contains(out, `msg="catalog change"`) {
		t.Errorf("per-change lines should be debug only: %q", out)
	}
}

func TestTruncateStr(t *testing.T) {
	if got := truncateStr(strings.Repeat("я", 10), 5); got != "яя..." {
		t.Errorf("truncateStr = %q", got)
	}
	if got := truncateStr("short", 200); got != "short" {
		t.Errorf("truncateStr = %q", got)
	}
}
