// Package mrkdwn parses Slack's inline markup into a tree of spans.
//
// Parsing is lossless: concatenating OriginalText of the top-level spans
// returned by Parse yields the input. Malformed tokens become PlainText.
package mrkdwn

// Span is one node of a parsed mrkdwn tree. The set of implementations is
// closed: PlainText, Emoji, Mention, Link and Formatted.
type Span interface {
	// OriginalText returns the exact source text this span was parsed from.
	OriginalText() string
	span()
}

// PlainText is literal text, including any malformed markup.
type PlainText struct {
	Text string
}

// Emoji is a shortcode such as :sparkles:
type Emoji struct {
	Original string
	Name     string
}

// MentionKind is the target of a Mention
type MentionKind string

const (
	MentionUser       MentionKind = "user"
	MentionChannel    MentionKind = "channel"
	MentionUserGroup  MentionKind = "usergroup"
	MentionAtHere     MentionKind = "here"
	MentionAtChannel  MentionKind = "at_channel"
	MentionAtEveryone MentionKind = "everyone"
)

// Mention is a user, channel, user group or broadcast mention. ID and Label
// are empty when the token does not carry them.
type Mention struct {
	Original string
	Kind     MentionKind
	ID       string
	Label    string
}

// Link is an angle-bracket link. Children hold the parsed label, or the URL
// as a single PlainText when no label was given.
type Link struct {
	Original string
	URL      string
	Children []Span
}

// Format is the style applied by a Formatted span
type Format string

const (
	FormatBold   Format = "bold"
	FormatItalic Format = "italic"
	FormatCode   Format = "code"
	FormatStrike Format = "strike"
)

// Formatted is text between a pair of formatting delimiters. Code spans hold
// their content verbatim as a single PlainText.
type Formatted struct {
	Original string
	Format   Format
	Children []Span
}

func (s PlainText) OriginalText() string { return s.Text }
func (s Emoji) OriginalText() string     { return s.Original }
func (s Mention) OriginalText() string   { return s.Original }
func (s Link) OriginalText() string      { return s.Original }
func (s Formatted) OriginalText() string { return s.Original }

func (PlainText) span() {}
func (Emoji) span()     {}
func (Mention) span()   {}
func (Link) span()      {}
func (Formatted) span() {}

// Walk visits spans depth-first. Returning false from fn skips the children
// of the current span.
func Walk(spans []Span, fn func(Span) bool) {
	for _, s := range spans {
		if !fn(s) {
			continue
		}
		switch v := s.(type) {
		case Link:
			Walk(v.Children, fn)
		case Formatted:
			Walk(v.Children, fn)
		}
	}
}

// MentionedUserIDs returns the ids of user mentions in order of first
// appearance, without duplicates.
func MentionedUserIDs(spans []Span) []string {
	var ids []string
	seen := make(map[string]struct{})
	Walk(spans, func(s Span) bool {
		if m, ok := s.(Mention); ok && m.Kind == MentionUser {
			if _, dup := seen[m.ID]; !dup {
				seen[m.ID] = struct{}{}
				ids = append(ids, m.ID)
			}
		}
		return true
	})
	return ids
}

// OriginalTextOf concatenates the source text of spans.
func OriginalTextOf(spans []Span) string {
	var n int
	for _, s := range spans {
		n += len(s.OriginalText())
	}
	buf := make([]byte, 0, n)
	for _, s := range spans {
		buf = append(buf, s.OriginalText()...)
	}
	return string(buf)
}

// PlainTextOf renders spans as readable text with markup removed.
func PlainTextOf(spans []Span) string {
	var buf []byte
	for _, s := range spans {
		switch v := s.(type) {
		case PlainText:
			buf = append(buf, v.Text...)
		case Emoji:
			buf = append(buf, v.Original...)
		case Mention:
			buf = append(buf, mentionText(v)...)
		case Link:
			buf = append(buf, PlainTextOf(v.Children)...)
		case Formatted:
			buf = append(buf, PlainTextOf(v.Children)...)
		}
	}
	return string(buf)
}

func mentionText(m Mention) string {
	switch m.Kind {
	case MentionUser:
		if m.Label != "" {
			return "@" + m.Label
		}
		return "@" + m.ID
	case MentionChannel:
		if m.Label != "" {
			return "#" + m.Label
		}
		return "#" + m.ID
	case MentionUserGroup:
		if m.Label != "" {
			return m.Label
		}
		return "@" + m.ID
	case MentionAtHere:
		return "@here"
	case MentionAtChannel:
		return "@channel"
	case MentionAtEveryone:
		return "@everyone"
	}
	return m.Original
}
