package maintenance

import (
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Record is one row of the maintenance schedule. DueDate is zero and
// DueMiles is zero when the sheet leaves them blank.
type Record struct {
	Unit     string
	Service  string
	DueDate  time.Time
	DueMiles int64
	Notes    string
}

// dateLayouts covers the formats the shop has used in the sheet.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"Jan 2, 2006",
	"Jan 2 2006",
}

var milesPattern = regexp.MustCompile(`\d[\d,]*`)

// parseSheet extracts records from the first table of a published
// sheet. Google's HTML rendering puts row numbers in th cells, so only
// td cells carry data. Rows before the header row are preamble.
func parseSheet(r io.Reader) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.New("maintenance: sheet is not parseable HTML")
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("maintenance: published sheet has no table")
	}

	var cols map[string]int
	var records []Record
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(c.Text()))
		})

		if cols == nil {
			cols = headerColumns(texts)
			return
		}

		rec := recordFromRow(texts, cols)
		if rec.Unit == "" || rec.Service == "" {
			return
		}
		records = append(records, rec)
	})

	if cols == nil {
		return nil, errors.New("maintenance: sheet has no unit/service header row")
	}
	return records, nil
}

// headerColumns maps column roles to cell indexes by header text.
// Returns nil until a row naming both a unit and a service column
// shows up.
func headerColumns(texts []string) map[string]int {
	cols := make(map[string]int)
	for i, t := range texts {
		t = strings.ToLower(t)
		switch {
		case strings.Contains(t, "unit") || strings.Contains(t, "truck"):
			cols["unit"] = i
		case strings.Contains(t, "service") || strings.Contains(t, "task"):
			cols["service"] = i
		case strings.Contains(t, "date"):
			cols["date"] = i
		case strings.Contains(t, "mile") || strings.Contains(t, "odo"):
			cols["miles"] = i
		case strings.Contains(t, "note"):
			cols["notes"] = i
		}
	}
	if _, ok := cols["unit"]; !ok {
		return nil
	}
	if _, ok := cols["service"]; !ok {
		return nil
	}
	return cols
}

func recordFromRow(texts []string, cols map[string]int) Record {
	cell := func(role string) string {
		i, ok := cols[role]
		if !ok || i >= len(texts) {
			return ""
		}
		return texts[i]
	}

	return Record{
		Unit:     cell("unit"),
		Service:  cell("service"),
		DueDate:  parseSheetDate(cell("date")),
		DueMiles: parseMiles(cell("miles")),
		Notes:    cell("notes"),
	}
}

func parseSheetDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func parseMiles(s string) int64 {
	match := milesPattern.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
