package parser

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// TextExtractor handles plain text files. The text is returned verbatim so
// offsets into it stay meaningful to callers holding the original file.
type TextExtractor struct{}

func (p *TextExtractor) Extract(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}
