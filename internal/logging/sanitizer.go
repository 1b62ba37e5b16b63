package logging

import (
	"regexp"
)

// Sanitizer redacts sensitive information from log messages and from command
// lines shown to the user.
type Sanitizer struct {
	rules    []rule
	redacted string
}

// rule masks the part of a match that follows its first capture group. Rules
// without a group mask the whole match.
type rule struct {
	re    *regexp.Regexp
	keyed bool
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		rules:    defaultRules(),
		redacted: "[REDACTED]",
	}
}

func defaultRules() []rule {
	keyed := []string{
		// mongo shell credentials: -p <password>
		`((?:^|[\s'"])-p\s+)\S+`,
		// --password <value> and --password=<value>
		`(--password(?:=|\s+))\S+`,
		// credentials embedded in connection URIs
		`((?:mongodb(?:\+srv)?|amqps?|https?|postgres(?:ql)?)://[^:/@\s]+:)[^@\s]+`,
		// password / secret / token key-value pairs
		`(?i)((?:passw(?:or)?d|passwd|secret|token|credentials?)[\w-]*["']?\s*[:=]\s*["']?)[^\s"',}]+`,
		// Bearer tokens
		`(?i)(bearer\s+)[a-zA-Z0-9._-]{8,}`,
	}
	bare := []string{
		// AWS Access Key
		`AKIA[0-9A-Z]{16}`,
	}

	rules := make([]rule, 0, len(keyed)+len(bare))
	for _, p := range keyed {
		rules = append(rules, rule{re: regexp.MustCompile(p), keyed: true})
	}
	for _, p := range bare {
		rules = append(rules, rule{re: regexp.MustCompile(p)})
	}
	return rules
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, r := range s.rules {
		if r.keyed {
			result = r.re.ReplaceAllString(result, "${1}"+s.redacted)
			continue
		}
		result = r.re.ReplaceAllLiteralString(result, s.redacted)
	}
	return result
}

// SanitizeMap redacts values in a map.
func (s *Sanitizer) SanitizeMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range m {
		switch val := v.(type) {
		case string:
			result[k] = s.Sanitize(val)
		case map[string]interface{}:
			result[k] = s.SanitizeMap(val)
		default:
			result[k] = v
		}
	}
	return result
}

// AddPattern adds a custom pattern. When the pattern has a capture group the
// group is kept and the rest of the match is redacted.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, rule{re: re, keyed: re.NumSubexp() > 0})
	return nil
}

// SetRedactedPlaceholder sets the placeholder text for redacted content.
func (s *Sanitizer) SetRedactedPlaceholder(placeholder string) {
	s.redacted = placeholder
}
