package apexlog

import (
	"regexp"
	"strconv"
	"strings"
)

// The extractors below never fail: a field that cannot be read yields the
// zero value so one bad field does not stop the rest of the tree.

var (
	timestampRe  = regexp.MustCompile(`\((\d+)\)`)
	lineNumberRe = regexp.MustCompile(`\[(\d+)\]`)
)

// soqlClauses end the object list that follows FROM.
var soqlClauses = map[string]bool{
	"where":  true,
	"with":   true,
	"group":  true,
	"order":  true,
	"limit":  true,
	"offset": true,
	"for":    true,
	"using":  true,
	"update": true,
}

// ParseTimestamp returns the nanosecond value in a "HH:MM:SS.mmm (ns)" field.
func ParseTimestamp(field string) int64 {
	m := timestampRe.FindStringSubmatch(field)
	if m == nil {
		return 0
	}
	ns, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return ns
}

// ParseLineNumber returns the integer in a "[42]" field.
func ParseLineNumber(field string) int {
	m := lineNumberRe.FindStringSubmatch(field)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// ParseRowCount returns the integer after the last colon, as in "Rows:12",
// or the whole field when it has none.
func ParseRowCount(field string) int {
	n, err := strconv.Atoi(strings.TrimSpace(field[strings.LastIndex(field, ":")+1:]))
	if err != nil {
		return 0
	}
	return n
}

// ParseSOQLObject returns the lower-cased object a query selects from, or
// "" when there is no FROM. Sub-queries are ignored so that neither a
// relationship query in the select list nor a semi-join in WHERE can win.
func ParseSOQLObject(query string) string {
	tokens := strings.Fields(stripParens(query))
	from := -1
	for i, tok := range tokens {
		if strings.EqualFold(tok, "from") {
			from = i
		}
	}
	if from < 0 {
		return ""
	}
	var object []string
	for _, tok := range tokens[from+1:] {
		if soqlClauses[strings.ToLower(tok)] {
			break
		}
		object = append(object, tok)
	}
	return strings.ToLower(strings.Join(object, " "))
}

// stripParens blanks out every parenthesised group, nested ones included.
func stripParens(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
			b.WriteRune(' ')
		case r == ')' && depth > 0:
			depth--
			b.WriteRune(' ')
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fieldValue returns the text after the first colon of a "Key:value" field.
func fieldValue(field string) string {
	i := strings.Index(field, ":")
	if i < 0 {
		return strings.TrimSpace(field)
	}
	return strings.TrimSpace(field[i+1:])
}

// lookupField finds the first "Key:value" payload field with the given key.
func lookupField(fields []string, key string) (string, bool) {
	prefix := strings.ToLower(key) + ":"
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(f)), prefix) {
			return fieldValue(f), true
		}
	}
	return "", false
}

// ParseLogLevels reads the Category,Level pairs of a header line such as
// "64.0 APEX_CODE,FINEST;DB,INFO". Order and duplicates are kept.
func ParseLogLevels(header string) []LogLevel {
	header = strings.TrimSpace(header)
	i := strings.IndexAny(header, " \t")
	if i < 0 {
		return []LogLevel{}
	}
	levels := []LogLevel{}
	for _, pair := range strings.Split(header[i+1:], ";") {
		parts := strings.SplitN(strings.TrimSpace(pair), ",", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		levels = append(levels, LogLevel{
			Category: strings.TrimSpace(parts[0]),
			Level:    strings.TrimSpace(parts[1]),
		})
	}
	return levels
}
