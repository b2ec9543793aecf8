package merge

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

func scalarResult(index int, kv ...string) types.SegmentResult {
	fields := make(types.FieldMap, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = types.ScalarValue(kv[i+1])
	}
	return types.SegmentResult{Index: index, Fields: fields}
}

func TestMerge_SentinelFill(t *testing.T) {
	r := Merge(nil, []string{"name", "date_of_birth"}, types.MergeConfig{}, &bytes.Buffer{})

	for _, field := range []string{"name", "date_of_birth"} {
		if got := r.Record[field]; got.IsList || got.Scalar != DefaultSentinel {
			t.Errorf("field %q = %v, want sentinel scalar", field, got)
		}
	}
	if r.Sentinel != DefaultSentinel {
		t.Errorf("Sentinel = %q, want %q", r.Sentinel, DefaultSentinel)
	}
}

func TestMerge_CustomSentinel(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "name", "N/A"),
		scalarResult(1, "name", "Alice"),
	}
	r := Merge(results, []string{"name"}, types.MergeConfig{Sentinel: "N/A"}, &bytes.Buffer{})

	// The sentinel from segment 0 is skipped, so Alice takes the slot.
	if got := r.Record["name"].Scalar; got != "Alice" {
		t.Errorf("name = %q, want Alice", got)
	}
}

func TestMerge_FirstValueWins(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "city", "Hamburg"),
		scalarResult(1, "country", "Germany"),
	}
	r := Merge(results, []string{"city", "country"}, types.MergeConfig{}, &bytes.Buffer{})

	if got := r.Record["city"].Scalar; got != "Hamburg" {
		t.Errorf("city = %q", got)
	}
	if got := r.Record["country"].Scalar; got != "Germany" {
		t.Errorf("country = %q", got)
	}
}

func TestMerge_EqualValuesNoConflict(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "name", "Alice Smith"),
		scalarResult(1, "name", "Alice Smith"),
	}
	var buf bytes.Buffer
	r := Merge(results, []string{"name"}, types.MergeConfig{}, &buf)

	if len(r.Conflicts) != 0 {
		t.Errorf("got %d conflicts, want 0", len(r.Conflicts))
	}
	if strings.Contains(buf.String(), "warning") {
		t.Errorf("unexpected warning: %q", buf.String())
	}
}

func TestMerge_FailedSegmentsSkipped(t *testing.T) {
	withFailure := []types.SegmentResult{
		scalarResult(0, "name", "Alice"),
		{Index: 1, Err: "timeout"},
		scalarResult(2, "city", "Hamburg"),
	}
	withoutFailure := []types.SegmentResult{
		scalarResult(0, "name", "Alice"),
		scalarResult(2, "city", "Hamburg"),
	}

	fields := []string{"name", "city"}
	a := Merge(withFailure, fields, types.MergeConfig{}, &bytes.Buffer{})
	b := Merge(withoutFailure, fields, types.MergeConfig{}, &bytes.Buffer{})

	if !reflect.DeepEqual(a.Record, b.Record) {
		t.Errorf("record with failed segment %v differs from without %v", a.Record, b.Record)
	}
}

func TestMerge_ListCoalescing(t *testing.T) {
	results := []types.SegmentResult{
		{Index: 0, Fields: types.FieldMap{"entries": types.ListValue("a", "b")}},
		{Index: 1, Fields: types.FieldMap{"entries": types.ListValue("c")}},
	}
	r := Merge(results, []string{"entries"}, types.MergeConfig{}, &bytes.Buffer{})

	got := r.Record["entries"]
	if !got.IsList || !reflect.DeepEqual(got.List, []string{"a", "b", "c"}) {
		t.Errorf("entries = %v, want [a b c]", got)
	}
	if !r.ListFields["entries"] {
		t.Error("entries should be registered as a list field")
	}
}

func TestMerge_ScalarThenListCoalesces(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "diagnosis", "Diabetes"),
		{Index: 1, Fields: types.FieldMap{"diagnosis": types.ListValue("Hypertension")}},
	}
	r := Merge(results, []string{"diagnosis"}, types.MergeConfig{}, &bytes.Buffer{})

	got := r.Record["diagnosis"]
	if !got.IsList || !reflect.DeepEqual(got.List, []string{"Diabetes", "Hypertension"}) {
		t.Errorf("diagnosis = %v", got)
	}
}

func TestMerge_LexiconFieldAccumulatesScalars(t *testing.T) {
	// "medications" matches the built-in list-field lexicon, so differing
	// scalars accumulate instead of conflicting.
	results := []types.SegmentResult{
		scalarResult(0, "medications", "aspirin"),
		scalarResult(1, "medications", "ibuprofen"),
		scalarResult(2, "medications", "paracetamol"),
	}
	r := Merge(results, []string{"medications"}, types.MergeConfig{}, &bytes.Buffer{})

	got := r.Record["medications"]
	if !got.IsList || !reflect.DeepEqual(got.List, []string{"aspirin", "ibuprofen", "paracetamol"}) {
		t.Errorf("medications = %v, want [aspirin ibuprofen paracetamol]", got)
	}
	if len(r.Conflicts) != 0 {
		t.Errorf("got %d conflicts, want 0", len(r.Conflicts))
	}
}

func TestMerge_LongerValueWins(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "employer", "Acme"),
		scalarResult(1, "employer", "Acme Corporation GmbH"),
	}
	r := Merge(results, []string{"employer"}, types.MergeConfig{}, &bytes.Buffer{})

	if got := r.Record["employer"].Scalar; got != "Acme Corporation GmbH" {
		t.Errorf("employer = %q, want the longer value", got)
	}
	if len(r.Conflicts) != 0 {
		t.Errorf("got %d conflicts, want 0", len(r.Conflicts))
	}
}

func TestMerge_SubstringKeepsSuperstring(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "employer", "Acme Corporation"),
		scalarResult(1, "employer", "Acme"),
	}
	r := Merge(results, []string{"employer"}, types.MergeConfig{}, &bytes.Buffer{})

	if got := r.Record["employer"].Scalar; got != "Acme Corporation" {
		t.Errorf("employer = %q, want the superstring", got)
	}
}

func TestMerge_PhoneFormattingQuality(t *testing.T) {
	// Same digits, different formatting: the better-formatted first value is
	// kept and no conflict is recorded.
	results := []types.SegmentResult{
		scalarResult(0, "phone_number", "(555) 123-4567"),
		scalarResult(1, "phone_number", "555-123-4567"),
	}
	var buf bytes.Buffer
	r := Merge(results, []string{"phone_number"}, types.MergeConfig{}, &buf)

	if got := r.Record["phone_number"].Scalar; got != "(555) 123-4567" {
		t.Errorf("phone_number = %q, want the better-formatted value", got)
	}
	if len(r.Conflicts) != 0 {
		t.Errorf("got %d conflicts, want 0", len(r.Conflicts))
	}

	// Reversed order: the longer rule promotes the richer formatting.
	reversed := []types.SegmentResult{
		scalarResult(0, "phone_number", "555-123-4567"),
		scalarResult(1, "phone_number", "(555) 123-4567"),
	}
	r = Merge(reversed, []string{"phone_number"}, types.MergeConfig{}, &buf)
	if got := r.Record["phone_number"].Scalar; got != "(555) 123-4567" {
		t.Errorf("phone_number = %q, want the better-formatted value", got)
	}
}

func TestMerge_IrreconcilableConflictKeepsFirst(t *testing.T) {
	results := []types.SegmentResult{
		scalarResult(0, "name", "Alice"),
		scalarResult(1, "name", "Bobby"),
	}
	var buf bytes.Buffer
	r := Merge(results, []string{"name"}, types.MergeConfig{}, &buf)

	if got := r.Record["name"].Scalar; got != "Alice" {
		t.Errorf("name = %q, want the first value", got)
	}
	if len(r.Conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(r.Conflicts))
	}
	c := r.Conflicts[0]
	if c.Field != "name" || c.Kept != "Alice" || c.Discarded != "Bobby" || c.SegmentIndex != 1 {
		t.Errorf("conflict = %+v", c)
	}
	if !strings.Contains(buf.String(), `conflicting values for field "name"`) {
		t.Errorf("expected conflict warning, got %q", buf.String())
	}
}

func TestMerge_DoubledInput(t *testing.T) {
	// Merging the segment list concatenated with itself leaves scalars
	// untouched; list fields grow by exact duplicates that the dedup fallback
	// later collapses.
	results := []types.SegmentResult{
		scalarResult(0, "name", "Alice Smith"),
		{Index: 1, Fields: types.FieldMap{"medications": types.ListValue("aspirin")}},
		{Index: 2, Fields: types.FieldMap{"medications": types.ListValue("ibuprofen")}},
	}
	doubled := append(append([]types.SegmentResult(nil), results...), results...)

	fields := []string{"name", "medications"}
	once := Merge(results, fields, types.MergeConfig{}, &bytes.Buffer{})
	twice := Merge(doubled, fields, types.MergeConfig{}, &bytes.Buffer{})

	if !once.Record["name"].Equal(twice.Record["name"]) {
		t.Errorf("scalar changed on doubled input: %v vs %v", once.Record["name"], twice.Record["name"])
	}

	meds := twice.Record["medications"]
	if !meds.IsList || !reflect.DeepEqual(meds.List, []string{"aspirin", "ibuprofen", "aspirin", "ibuprofen"}) {
		t.Errorf("medications = %v, want exact duplicates before dedup", meds.List)
	}
	if got := dedupExact(meds.List); !reflect.DeepEqual(got, once.Record["medications"].List) {
		t.Errorf("exact dedup = %v, want %v", got, once.Record["medications"].List)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	// Feeding a merged record back as a single segment reproduces it.
	results := []types.SegmentResult{
		scalarResult(0, "name", "Alice Smith", "city", "Hamburg"),
		{Index: 1, Fields: types.FieldMap{"medications": types.ListValue("aspirin", "ibuprofen")}},
	}
	fields := []string{"name", "city", "medications"}
	first := Merge(results, fields, types.MergeConfig{}, &bytes.Buffer{})

	again := Merge([]types.SegmentResult{{Index: 0, Fields: types.FieldMap(first.Record)}}, fields, types.MergeConfig{}, &bytes.Buffer{})
	if !reflect.DeepEqual(first.Record, again.Record) {
		t.Errorf("re-merge changed the record: %v vs %v", first.Record, again.Record)
	}
}

// --- IsListField ---

func TestIsListField(t *testing.T) {
	tests := []struct {
		field    string
		keywords []string
		want     bool
	}{
		{field: "medical_history", want: true},
		{field: "Medications", want: true},
		{field: "work_experiences", want: true},
		{field: "name", want: false},
		{field: "date_of_birth", want: false},
		{field: "allergy_notes", keywords: []string{"notes"}, want: true},
		{field: "medical_history", keywords: []string{"notes"}, want: false},
	}

	for _, tt := range tests {
		if got := IsListField(tt.field, tt.keywords); got != tt.want {
			t.Errorf("IsListField(%q, %v) = %v, want %v", tt.field, tt.keywords, got, tt.want)
		}
	}
}
