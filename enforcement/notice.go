package enforcement

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxQuotedRunes bounds the quoted copy of flagged content in notices.
const MaxQuotedRunes = 1800

// MaxMessageRunes is the longest message Discord accepts.
const MaxMessageRunes = 2000

// maxHeaderPartRunes bounds user-controlled text echoed in a notice header.
const maxHeaderPartRunes = 200

const tooLongMarker = "… (message too long, truncated)"

// Truncate cuts s to at most limit runes, marking the cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + tooLongMarker
}

// Quote renders s as a Discord block quote.
func Quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

// fitNotice appends the quoted content to header, cutting the quote so the
// whole notice stays within MaxMessageRunes.
func fitNotice(header, content string) string {
	quoted := Quote(Truncate(content, MaxQuotedRunes))
	if utf8.RuneCountInString(header)+utf8.RuneCountInString(quoted) <= MaxMessageRunes {
		return header + quoted
	}

	budget := MaxMessageRunes - utf8.RuneCountInString(header) - utf8.RuneCountInString(tooLongMarker)
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("> ")
	used := 2
	for _, r := range content {
		piece, n := string(r), 1
		if r == '\n' {
			piece, n = "\n> ", 3
		}
		if used+n > budget {
			break
		}
		b.WriteString(piece)
		used += n
	}
	b.WriteString(tooLongMarker)
	return b.String()
}

func messageNotice(guildName, channelID, filterText, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your message in <#%s>", channelID)
	if guildName != "" {
		fmt.Fprintf(&b, " (%s)", Truncate(guildName, maxHeaderPartRunes))
	}
	fmt.Fprintf(&b, " was removed because it matched the filter `%s`.\n", Truncate(filterText, maxHeaderPartRunes))
	return fitNotice(b.String(), content)
}

func contentNotice(channelID, url string) string {
	return fmt.Sprintf("Your message in <#%s> was removed because the linked file %s is blocked on this server.",
		channelID, Truncate(url, MaxQuotedRunes))
}

func nameNotice(kind NameKind, filterText, name, action string) string {
	header := fmt.Sprintf("Your %s matched the filter `%s` and was %s.\n", kind, Truncate(filterText, maxHeaderPartRunes), action)
	return fitNotice(header, name)
}
