// Package envelope normalizes completion-API replies into the fixed
// assistant reply shape. Parsing is strict first; the bracket and keyword
// heuristics only run on the fallback path, so a reply that needed them is
// visible as a data-quality signal to the caller.
package envelope

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"taskdesk/internal/domain"
)

// Kind tags the parse outcome.
type Kind int

const (
	// Ok means the raw reply was valid JSON in the expected shape.
	Ok Kind = iota
	// Fallback means heuristics produced the envelope from a
	// non-conforming reply.
	Fallback
	// Malformed means no usable envelope could be produced.
	Malformed
)

// Result is the tagged outcome of parsing a raw completion reply.
type Result struct {
	Kind     Kind
	Envelope domain.Envelope
	Reason   string
}

// optionListPattern matches a bracketed option list like
// ["Ja", "Nein", "Weiß nicht"] embedded in prose.
var optionListPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// lostKeyPattern catches free-text replies about lost keys; those always
// get a yes/no confirmation option pair.
var lostKeyPattern = regexp.MustCompile(`(?i)schl(ü|ue)ssel.{0,40}verloren`)

// Parse normalizes a raw completion reply. The returned envelope always has
// a text string and a non-nil options slice, except when Kind is Malformed.
func Parse(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Kind: Malformed, Reason: "empty completion reply"}
	}

	trimmed = stripCodeFence(trimmed)

	if gjson.Valid(trimmed) && gjson.Get(trimmed, "text").Type == gjson.String {
		normalized := trimmed
		if !gjson.Get(normalized, "options").IsArray() {
			normalized, _ = sjson.Set(normalized, "options", []string{})
		}
		var env domain.Envelope
		if err := json.Unmarshal([]byte(normalized), &env); err == nil {
			if env.Options == nil {
				env.Options = []string{}
			}
			if env.Action != "" && !domain.ValidAction(env.Action) {
				env.Action = domain.ActionNextStep
			}
			return Result{Kind: Ok, Envelope: env}
		}
	}

	// Valid JSON but not the expected object shape, e.g. a bare string.
	if gjson.Valid(trimmed) {
		if v := gjson.Parse(trimmed); v.Type == gjson.String {
			return fallback(v.String(), "completion returned a JSON string instead of an envelope")
		}
	}

	return fallback(trimmed, "completion reply is not a valid envelope")
}

// fallback applies the heuristics for non-conforming replies.
func fallback(text, reason string) Result {
	env := domain.Envelope{Text: text, Options: []string{}}

	if m := optionListPattern.FindStringSubmatch(text); m != nil {
		options := splitOptions(m[1])
		if len(options) > 1 {
			env.Options = options
			env.Text = strings.TrimSpace(strings.Replace(text, m[0], "", 1))
			if env.Text == "" {
				env.Text = text
			}
			return Result{Kind: Fallback, Envelope: env, Reason: reason + " (options extracted from bracketed list)"}
		}
	}

	if lostKeyPattern.MatchString(text) {
		env.Options = []string{"Ja", "Nein"}
		env.Action = domain.ActionClarificationNeeded
		return Result{Kind: Fallback, Envelope: env, Reason: reason + " (lost-key keyword match)"}
	}

	return Result{Kind: Fallback, Envelope: env, Reason: reason}
}

// splitOptions splits a bracketed list body on commas and strips quotes.
func splitOptions(body string) []string {
	parts := strings.Split(body, ",")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"'`)
		p = strings.TrimSpace(p)
		if p != "" {
			options = append(options, p)
		}
	}
	return options
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
