package mrkdwn

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	subteamPrefix = "subteam^"
	preDelim      = "```"
)

// Parse splits text into spans. It never fails; anything that is not
// well-formed markup is returned as PlainText.
func Parse(text string) []Span {
	return parseSpans(text)
}

func parseSpans(text string) []Span {
	var spans []Span
	plainStart := 0

	for i := 0; i < len(text); {
		span, n, ok := parseToken(text, i)
		if !ok {
			// n covers the attempted token; it joins the current plain run
			i += n
			continue
		}
		if plainStart < i {
			spans = append(spans, PlainText{Text: text[plainStart:i]})
		}
		spans = append(spans, span)
		i += n
		plainStart = i
	}

	if plainStart < len(text) {
		spans = append(spans, PlainText{Text: text[plainStart:]})
	}
	return spans
}

// parseToken tries to recognize a token starting at text[i]. On success it
// returns the span and the number of bytes consumed. On failure it returns
// ok=false and the number of bytes to treat as plain text (at least one).
func parseToken(text string, i int) (Span, int, bool) {
	switch text[i] {
	case ':':
		return parseEmoji(text, i)
	case '<':
		return parseAngle(text, i)
	case '*', '_', '`', '~':
		return parseFormatted(text, i)
	default:
		return nil, 1, false
	}
}

func parseEmoji(text string, i int) (Span, int, bool) {
	j := i + 1
	for j < len(text) && isEmojiNameByte(text[j]) {
		j++
	}
	if j == i+1 || j >= len(text) || text[j] != ':' {
		return nil, 1, false
	}
	return Emoji{Original: text[i : j+1], Name: text[i+1 : j]}, j + 1 - i, true
}

func parseAngle(text string, i int) (Span, int, bool) {
	end := strings.IndexByte(text[i+1:], '>')
	if end < 0 {
		// unterminated; the attempted token runs to the end of the input
		return nil, len(text) - i, false
	}
	end += i + 1
	consumed := end + 1 - i
	original := text[i : end+1]
	content := text[i+1 : end]
	if content == "" {
		return nil, consumed, false
	}

	switch content[0] {
	case '@':
		return parseIDMention(original, content[1:], MentionUser, consumed)
	case '#':
		return parseIDMention(original, content[1:], MentionChannel, consumed)
	case '!':
		return parseBangMention(original, content[1:], consumed)
	default:
		return parseLink(original, content, consumed)
	}
}

func parseIDMention(original, body string, kind MentionKind, consumed int) (Span, int, bool) {
	id, label, _ := strings.Cut(body, "|")
	if !isPlatformID(id) {
		return nil, consumed, false
	}
	return Mention{Original: original, Kind: kind, ID: id, Label: label}, consumed, true
}

func parseBangMention(original, body string, consumed int) (Span, int, bool) {
	if rest, ok := strings.CutPrefix(body, subteamPrefix); ok {
		return parseIDMention(original, rest, MentionUserGroup, consumed)
	}

	name, label, _ := strings.Cut(body, "|")
	var kind MentionKind
	switch name {
	case "here":
		kind = MentionAtHere
	case "channel":
		kind = MentionAtChannel
	case "everyone":
		kind = MentionAtEveryone
	default:
		return nil, consumed, false
	}
	return Mention{Original: original, Kind: kind, Label: label}, consumed, true
}

func parseLink(original, content string, consumed int) (Span, int, bool) {
	url, label, hasLabel := strings.Cut(content, "|")
	if url == "" || strings.ContainsFunc(url, unicode.IsSpace) {
		return nil, consumed, false
	}

	var children []Span
	if hasLabel && label != "" {
		children = parseSpans(label)
	} else {
		children = []Span{PlainText{Text: url}}
	}
	return Link{Original: original, URL: url, Children: children}, consumed, true
}

func parseFormatted(text string, i int) (Span, int, bool) {
	if strings.HasPrefix(text[i:], preDelim) {
		if span, n, ok := parsePreformatted(text, i); ok {
			return span, n, true
		}
	}

	delim := text[i]
	if !isOpenBoundary(text, i) || i+1 >= len(text) || isSpaceByte(text[i+1]) {
		return nil, 1, false
	}

	end := findClose(text, i, delim)
	if end < 0 {
		return nil, 1, false
	}

	inner := text[i+1 : end]
	var children []Span
	if delim == '`' {
		children = []Span{PlainText{Text: inner}}
	} else {
		children = parseSpans(inner)
	}

	return Formatted{
		Original: text[i : end+1],
		Format:   formatOf(delim),
		Children: children,
	}, end + 1 - i, true
}

// parsePreformatted recognizes a ``` fenced block. Unlike inline formatting
// it may span lines, and its content is verbatim.
func parsePreformatted(text string, i int) (Span, int, bool) {
	start := i + len(preDelim)
	end := strings.Index(text[start:], preDelim)
	if end <= 0 {
		return nil, 1, false
	}
	end += start
	return Formatted{
		Original: text[i : end+len(preDelim)],
		Format:   FormatCode,
		Children: []Span{PlainText{Text: text[start:end]}},
	}, end + len(preDelim) - i, true
}

// findClose returns the index of the delimiter closing the one at text[open],
// or -1. Formatting never spans lines, and angle-bracket tokens and code spans
// are skipped over so their contents cannot close an outer span.
func findClose(text string, open int, delim byte) int {
	for k := open + 1; k < len(text); k++ {
		c := text[k]
		if c == '\n' {
			return -1
		}
		if delim != '`' {
			if c == '<' {
				if e := strings.IndexByte(text[k:], '>'); e >= 0 {
					k += e
					continue
				}
			}
			if c == '`' {
				if e := strings.IndexByte(text[k+1:], '`'); e >= 0 {
					k += e + 1
					continue
				}
			}
		}
		if c == delim && k > open+1 && !isSpaceByte(text[k-1]) && isCloseBoundary(text, k+1) {
			return k
		}
	}
	return -1
}

func formatOf(delim byte) Format {
	switch delim {
	case '*':
		return FormatBold
	case '_':
		return FormatItalic
	case '`':
		return FormatCode
	default:
		return FormatStrike
	}
}

func isOpenBoundary(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func isCloseBoundary(text string, next int) bool {
	if next >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[next:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isEmojiNameByte(b byte) bool {
	return isAlnumByte(b) || b == '+' || b == '-' || b == '_'
}

func isAlnumByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isPlatformID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !isAlnumByte(id[i]) {
			return false
		}
	}
	return true
}
