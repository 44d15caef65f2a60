package reading

import (
	"regexp"
	"strings"
)

// Placeholder tokens used when a field cannot be recovered from the model
// output.
const (
	placeholderLocation  = "[Location]"
	placeholderDate      = "[Date]"
	placeholderTime      = "[Predicted Time]"
	placeholderAscendant = "[Ascendant Sign]"
	placeholderAlt1      = "[Alternative Time 1]"
	placeholderAlt2      = "[Alternative Time 2]"
)

var (
	locationRe     = regexp.MustCompile(`for ([^\n]+) on`)
	dateRe         = regexp.MustCompile(`(?i)on ([^,\n]+),? your predicted birth time`)
	timeRe         = regexp.MustCompile(`(?i)predicted birth time is approximately ([^ ]+ [AP]M)`)
	ascendantRe    = regexp.MustCompile(`(?i)with ([^ ]+) as the calculated Ascendant`)
	alternativesRe = regexp.MustCompile(`(?i)Alternative birth times:[\s\S]*?([0-9:APM\n\r\- ]+)`)
	altSplitRe     = regexp.MustCompile(`[\n,\r]`)
)

// Fields are the structured values extracted from a model prediction.
type Fields struct {
	Location     string
	Date         string
	Time         string
	Ascendant    string
	Alternatives []string
}

// parseFields pulls the template fields out of free-form model output.
// Fields that fail to match fall back to the request's own values where
// available, and to placeholder tokens otherwise.
func parseFields(content string, birth BirthData) Fields {
	f := Fields{
		Location:     placeholderLocation,
		Date:         placeholderDate,
		Time:         placeholderTime,
		Ascendant:    placeholderAscendant,
		Alternatives: []string{placeholderAlt1, placeholderAlt2},
	}
	if birth.Location != "" {
		f.Location = birth.Location
	}
	if birth.Date != "" {
		f.Date = birth.Date
	}

	if m := locationRe.FindStringSubmatch(content); m != nil {
		f.Location = strings.TrimSpace(m[1])
	}
	if m := dateRe.FindStringSubmatch(content); m != nil {
		f.Date = strings.TrimSpace(m[1])
	}
	if m := timeRe.FindStringSubmatch(content); m != nil {
		f.Time = strings.TrimSpace(m[1])
	}
	if m := ascendantRe.FindStringSubmatch(content); m != nil {
		f.Ascendant = strings.TrimSpace(m[1])
	}
	if m := alternativesRe.FindStringSubmatch(content); m != nil {
		var alts []string
		for _, part := range altSplitRe.Split(strings.TrimSpace(m[1]), -1) {
			if part = strings.TrimSpace(part); part != "" {
				alts = append(alts, part)
			}
		}
		if len(alts) > 0 {
			f.Alternatives = alts
		}
	}

	return f
}

// render produces the canonical fixed-format prediction text. The model's
// verbatim output is never returned for the text branch; the extracted
// fields are always re-rendered through this template.
func (f Fields) render() string {
	var b strings.Builder
	b.WriteString("Based on your birth details and the astronomy data, combined with intuitive analysis and precise Vedic astrology calculations for ")
	b.WriteString(f.Location)
	b.WriteString(" on ")
	b.WriteString(f.Date)
	b.WriteString(", your predicted birth time is approximately ")
	b.WriteString(f.Time)
	b.WriteString(" local time, with ")
	b.WriteString(f.Ascendant)
	b.WriteString(" as the calculated Ascendant.\n\nAlternative birth times:\n")
	b.WriteString(strings.Join(f.Alternatives, "\n"))
	return b.String()
}
