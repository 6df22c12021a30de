package utils

import "strings"

// RenderTemplate substitutes {name} tokens from vars. Unknown tokens are kept
// verbatim so a misspelled placeholder shows up in the output instead of
// silently disappearing.
func RenderTemplate(tmpl string, vars map[string]string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		closing := strings.IndexByte(tmpl[open:], '}')
		if closing < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:open])
		token := tmpl[open+1 : open+closing]
		if value, ok := vars[token]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(tmpl[open : open+closing+1])
		}
		tmpl = tmpl[open+closing+1:]
	}
	return b.String()
}
