package views

import (
	"html"
	"html/template"
	"net/url"
	"regexp"
	"strings"
)

var (
	reBold   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic = regexp.MustCompile(`\*([^*]+)\*`)
	reLink   = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
)

// Notes renders free-text visit notes. Blank lines separate paragraphs,
// lines starting with "- " or "* " form bullet lists, and **bold**,
// *italic* and [links](url) are recognised. Everything else is escaped.
func Notes(text string) template.HTML {
	var b strings.Builder
	inList, inPara := false, false
	closeList := func() {
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
	}
	closePara := func() {
		if inPara {
			b.WriteString("</p>")
			inPara = false
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			closeList()
			closePara()
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			closePara()
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			b.WriteString("<li>" + formatInline(trimmed[2:]) + "</li>")
		default:
			closeList()
			if inPara {
				b.WriteString("<br>")
			} else {
				b.WriteString("<p>")
				inPara = true
			}
			b.WriteString(formatInline(trimmed))
		}
	}
	closeList()
	closePara()
	return template.HTML(b.String())
}

func formatInline(s string) string {
	escaped := html.EscapeString(s)
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := safeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `" rel="noopener noreferrer">` + match[1] + `</a>`
	})
	return applyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		return reItalic.ReplaceAllString(seg, "<em>$1</em>")
	})
}

// applyOutsideTags applies fn to the text between HTML tags only, so link
// targets are never reformatted.
func applyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// safeURL returns an escaped href for relative, http(s), mailto and tel
// URLs, or "" for anything else.
func safeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") && !strings.HasPrefix(val, "//") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
