package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/regoutline/internal/outline"
)

// csvColumns are the required header names of an outline CSV, in any order.
var csvColumns = []string{"chapter", "chapter_title", "code", "title"}

// ParseOutlineCSV reads an outline from CSV. Each data row is one heading
// entry; consecutive rows sharing a chapter number form one chapter, and the
// first non-empty chapter_title seen for a chapter names it.
func ParseOutlineCSV(r io.Reader) ([]outline.Chapter, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("parse csv: missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var chapters []outline.Chapter
	index := make(map[string]int)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("parse csv line %d: %w", line, err)
		}

		num := field(row, "chapter")
		if num == "" {
			return nil, fmt.Errorf("parse csv line %d: empty chapter", line)
		}
		i, ok := index[num]
		if !ok {
			i = len(chapters)
			index[num] = i
			chapters = append(chapters, outline.Chapter{Number: outline.ChapterNumber(num)})
		}
		if chapters[i].Title == "" {
			chapters[i].Title = field(row, "chapter_title")
		}

		code, title := field(row, "code"), field(row, "title")
		if code == "" && title == "" {
			continue
		}
		chapters[i].Entries = append(chapters[i].Entries, outline.HeadingEntry{Code: code, Title: title})
	}
	return chapters, nil
}
