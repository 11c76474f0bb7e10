package phase

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetadataByNameRoundTrip(t *testing.T) {
	for m := Metadata(0); m < metadataCount; m++ {
		got, ok := MetadataByName(m.Name())
		if !ok {
			t.Fatalf("%s: lookup failed", m)
		}
		if got != m {
			t.Fatalf("%s: round trip gave %s", m, got)
		}
	}
	if _, ok := MetadataByName("nope"); ok {
		t.Fatal("unknown name should not resolve")
	}
}

func TestAvailabilityTable(t *testing.T) {
	type row struct {
		Meta  Metadata
		Enter bool
		Exit  bool
		Error bool
	}
	want := []row{
		{MetaPathname, true, true, true},
		{MetaLine, true, true, true},
		{MetaLogger, true, true, true},
		{MetaFunc, true, true, true},
		{MetaTime, false, true, true},
		{MetaRet, false, true, false},
		{MetaErr, false, false, true},
		{MetaTraceback, false, false, true},
	}
	var got []row
	for m := Metadata(0); m < metadataCount; m++ {
		got = append(got, row{
			Meta:  m,
			Enter: Enter.Allows(m, false),
			Exit:  Exit.Allows(m, false),
			Error: Error.Allows(m, false),
		})
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("availability mismatch (-want +got):\n%s", diff)
	}
}

func TestRetInErrorNeedsFallback(t *testing.T) {
	if Error.Allows(MetaRet, false) {
		t.Fatal("@ret must not be available in error phase without a fallback")
	}
	if !Error.Allows(MetaRet, true) {
		t.Fatal("@ret must be available in error phase with a fallback")
	}
	// retAvailable only widens the one conditional cell.
	if Enter.Allows(MetaRet, true) {
		t.Fatal("@ret must never be available in enter phase")
	}
}
