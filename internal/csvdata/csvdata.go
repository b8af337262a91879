// Package csvdata turns headed CSV text into records.
package csvdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/johnwards/seeder/internal/domain"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeHeader maps a raw header cell to a field name: diacritics are
// stripped, letters lower-cased, anything that is neither a word character
// nor whitespace dropped, and whitespace runs joined with "_".
// "User Name" becomes "user_name", " E-Mail " becomes "email".
func NormalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(h) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	s := cases.Lower(language.Und).String(strings.TrimSpace(b.String()))
	return whitespaceRe.ReplaceAllString(s, "_")
}

// NewReader wraps r so that a leading byte-order mark is consumed and UTF-16
// input is re-encoded as UTF-8.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, xunicode.BOMOverride(xunicode.UTF8.NewDecoder()))
}

// Parse reads headed CSV from r. The first row names the fields; each later
// row becomes one record, in file order. Rows shorter than the header leave
// the missing fields nil; extra cells are dropped. Columns whose header
// normalizes to "" are skipped, and a repeated header keeps its first column.
// An empty input yields no records.
func Parse(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	fields := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		fields[i] = name
	}

	records := []domain.Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}

		rec := make(domain.Record, len(seen))
		for i, name := range fields {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = nil
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
