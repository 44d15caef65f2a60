package reading

import (
	"strings"
	"testing"
)

const wellFormedOutput = "Based on your birth details and the astronomy data above, combined with intuitive analysis and precise Vedic astrology calculations for Lusaka, Zambia on 1990-05-15, your predicted birth time is approximately 6:45 AM local time, with Taurus as the calculated Ascendant.\n\nAlternative birth times:\n7:15 AM\n5:30 AM"

func TestParseFieldsWellFormed(t *testing.T) {
	f := parseFields(wellFormedOutput, BirthData{})

	if f.Location != "Lusaka, Zambia" {
		t.Errorf("location = %q", f.Location)
	}
	if f.Date != "1990-05-15" {
		t.Errorf("date = %q", f.Date)
	}
	if f.Time != "6:45 AM" {
		t.Errorf("time = %q", f.Time)
	}
	if f.Ascendant != "Taurus" {
		t.Errorf("ascendant = %q", f.Ascendant)
	}
	if len(f.Alternatives) != 2 || f.Alternatives[0] != "7:15 AM" || f.Alternatives[1] != "5:30 AM" {
		t.Errorf("alternatives = %v", f.Alternatives)
	}
}

func TestParseFieldsFallsBackToBirthData(t *testing.T) {
	f := parseFields("The stars were unclear today.", BirthData{
		Location: "Nairobi, Kenya",
		Date:     "1985-01-02",
	})

	if f.Location != "Nairobi, Kenya" {
		t.Errorf("location = %q, want birth data value", f.Location)
	}
	if f.Date != "1985-01-02" {
		t.Errorf("date = %q, want birth data value", f.Date)
	}
	if f.Time != placeholderTime {
		t.Errorf("time = %q, want placeholder", f.Time)
	}
	if f.Ascendant != placeholderAscendant {
		t.Errorf("ascendant = %q, want placeholder", f.Ascendant)
	}
	if len(f.Alternatives) != 2 || f.Alternatives[0] != placeholderAlt1 {
		t.Errorf("alternatives = %v, want placeholders", f.Alternatives)
	}
}

func TestParseFieldsPlaceholdersWhenNothingKnown(t *testing.T) {
	f := parseFields("", BirthData{})

	if f.Location != placeholderLocation || f.Date != placeholderDate {
		t.Errorf("fields = %+v, want placeholders", f)
	}
}

func TestParseFieldsPartialMatch(t *testing.T) {
	content := "your predicted birth time is approximately 11:20 PM local time, with Scorpio as the calculated Ascendant. No alternatives provided."

	f := parseFields(content, BirthData{Location: "Berlin, Germany"})

	if f.Time != "11:20 PM" {
		t.Errorf("time = %q", f.Time)
	}
	if f.Ascendant != "Scorpio" {
		t.Errorf("ascendant = %q", f.Ascendant)
	}
	if f.Location != "Berlin, Germany" {
		t.Errorf("location = %q", f.Location)
	}
	if len(f.Alternatives) != 2 || f.Alternatives[1] != placeholderAlt2 {
		t.Errorf("alternatives = %v", f.Alternatives)
	}
}

func TestRenderCanonicalForm(t *testing.T) {
	got := Fields{
		Location:     "Lusaka, Zambia",
		Date:         "1990-05-15",
		Time:         "6:45 AM",
		Ascendant:    "Taurus",
		Alternatives: []string{"7:15 AM", "5:30 AM"},
	}.render()

	want := "Based on your birth details and the astronomy data, combined with intuitive analysis and precise Vedic astrology calculations for Lusaka, Zambia on 1990-05-15, your predicted birth time is approximately 6:45 AM local time, with Taurus as the calculated Ascendant.\n\nAlternative birth times:\n7:15 AM\n5:30 AM"
	if got != want {
		t.Errorf("render mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestParseThenRenderRoundTrip(t *testing.T) {
	// Rendered output of a parse must itself be parseable; the canonical
	// template is a fixed point.
	f1 := parseFields(wellFormedOutput, BirthData{})
	rendered := f1.render()
	f2 := parseFields(rendered, BirthData{})

	if f1.Location != f2.Location || f1.Time != f2.Time || f1.Ascendant != f2.Ascendant {
		t.Errorf("round trip drifted: %+v vs %+v", f1, f2)
	}
	if strings.Join(f1.Alternatives, "|") != strings.Join(f2.Alternatives, "|") {
		t.Errorf("alternatives drifted: %v vs %v", f1.Alternatives, f2.Alternatives)
	}
}
