package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/infra/ai/prompt"
)

// Normalize converts raw, untrusted model output into a strict Result. The
// pipeline runs its stages in order, each narrowing the previous stage's
// output; when every stage fails it returns a ParseError rather than a
// defaulted "empty" success, so a bad response is never persisted as if it
// were a genuine analysis.
func Normalize(raw string) (*analysis.Result, error) {
	text := stripThink(raw)

	if span, ok := delimitedSpan(text); ok {
		if res, ok := parseObject(span); ok {
			return res, nil
		}
	}

	if span, ok := braceSpan(text); ok {
		// Undelimited braces are a guess: only accept the object when it
		// carries at least one schema key, otherwise an incidental JSON
		// fragment (a lone data point, say) would shadow the later stages.
		if payload, ok := parsePayload(span); ok && hasSchemaKey(payload) {
			return buildResult(payload), nil
		}
	}

	if res, ok := parseFieldTags(text); ok {
		return res, nil
	}

	return nil, &analysis.ParseError{RawPrefix: rawPrefix(raw, 160)}
}

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThink removes inline hidden-reasoning blocks.
func stripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// delimitedSpan extracts the substring between the LAST occurrence of the
// open tag and its matching close tag. Using the last occurrence skips any
// echo of the instructions (which contain the same tokens) earlier in the
// text.
func delimitedSpan(s string) (string, bool) {
	oi := strings.LastIndex(s, prompt.OpenTag)
	if oi < 0 {
		return "", false
	}
	rest := s[oi+len(prompt.OpenTag):]
	ci := strings.Index(rest, prompt.CloseTag)
	if ci < 0 {
		return "", false
	}
	return rest[:ci], true
}

// braceSpan falls back to scanning for the first '{' and its matching closing
// brace across the whole text, or the largest fenced code block containing
// braces when the top-level scan finds nothing balanced.
func braceSpan(s string) (string, bool) {
	if span, ok := matchBraces(s); ok {
		return span, true
	}
	// largest fenced block that contains an object
	best := ""
	for _, block := range fencedBlocks(s) {
		if strings.Contains(block, "{") && len(block) > len(best) {
			best = block
		}
	}
	if best != "" {
		if span, ok := matchBraces(best); ok {
			return span, true
		}
	}
	// unbalanced output: first '{' through the last '}' is the best guess
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1], true
	}
	return "", false
}

// matchBraces walks from the first '{' counting depth, quote-aware.
func matchBraces(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var reFenceOpen = regexp.MustCompile("(?s)```[a-zA-Z]*\n(.*?)```")

func fencedBlocks(s string) []string {
	var out []string
	for _, m := range reFenceOpen.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

var reFenceMarker = regexp.MustCompile("```[a-zA-Z]*")

// stripFences removes markdown code-fence markers left inside a span.
func stripFences(s string) string {
	return reFenceMarker.ReplaceAllString(s, "")
}

// sanitizePlaceholders removes literal "..." tokens (and a preceding comma)
// that violate the no-placeholders instruction. The scan is quote-aware so
// legitimate "..." inside string values survives.
func sanitizePlaceholders(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '.' && i+2 < len(s) && s[i+1] == '.' && s[i+2] == '.' {
			// drop the token and any comma that introduced it
			trimmed := strings.TrimRight(b.String(), " \t\n\r")
			trimmed = strings.TrimSuffix(trimmed, ",")
			b.Reset()
			b.WriteString(trimmed)
			i += 2
			// swallow a trailing comma left behind by ", ..., "
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && s[j] == ',' && strings.HasSuffix(b.String(), "[") {
				i = j
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// parseObject attempts the strict structured parse of one extracted span.
func parseObject(span string) (*analysis.Result, bool) {
	payload, ok := parsePayload(span)
	if !ok {
		return nil, false
	}
	return buildResult(payload), true
}

func parsePayload(span string) (map[string]any, bool) {
	cleaned := sanitizePlaceholders(stripFences(span))
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

var schemaKeys = []string{
	"methodology_summary", "reasoning", "critical_assumptions",
	"simulation_python_code", "simulation_data",
	"reproducibility_score", "citation_integrity",
}

func hasSchemaKey(m map[string]any) bool {
	for _, k := range schemaKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

var fieldTagRes = map[string]*regexp.Regexp{}

func init() {
	for _, tag := range []string{
		prompt.SummaryTag, prompt.ReasoningTag, prompt.AssumptionsTag,
		prompt.CodeTag, prompt.DataTag, prompt.ScoreTag, prompt.IntegrityTag,
	} {
		fieldTagRes[tag] = regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
	}
}

// lastTagValue returns the last match for a field tag pair, skipping echoes.
func lastTagValue(s, tag string) (string, bool) {
	matches := fieldTagRes[tag].FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return "", false
	}
	return strings.TrimSpace(matches[len(matches)-1][1]), true
}

// parseFieldTags is the alternate per-field tag-extraction interpretation.
func parseFieldTags(text string) (*analysis.Result, bool) {
	payload := map[string]any{}
	found := false

	if v, ok := lastTagValue(text, prompt.SummaryTag); ok {
		payload["methodology_summary"] = v
		found = true
	}
	if v, ok := lastTagValue(text, prompt.ReasoningTag); ok {
		payload["reasoning"] = v
		found = true
	}
	if v, ok := lastTagValue(text, prompt.CodeTag); ok {
		payload["simulation_python_code"] = v
		found = true
	}
	if v, ok := lastTagValue(text, prompt.IntegrityTag); ok {
		payload["citation_integrity"] = v
		found = true
	}
	if v, ok := lastTagValue(text, prompt.ScoreTag); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			payload["reproducibility_score"] = float64(n)
		}
		found = true
	}
	if v, ok := lastTagValue(text, prompt.AssumptionsTag); ok {
		var arr []any
		if err := json.Unmarshal([]byte(sanitizePlaceholders(stripFences(v))), &arr); err == nil {
			payload["critical_assumptions"] = arr
		}
		found = true
	}
	if v, ok := lastTagValue(text, prompt.DataTag); ok {
		var arr []any
		if err := json.Unmarshal([]byte(sanitizePlaceholders(stripFences(v))), &arr); err == nil {
			payload["simulation_data"] = arr
		}
		found = true
	}

	if !found {
		return nil, false
	}
	return buildResult(payload), true
}

// buildResult applies field-level defaults and coercions to a parsed payload.
// Every field has a named default; nothing passes through untyped.
func buildResult(m map[string]any) *analysis.Result {
	res := &analysis.Result{
		Summary:              stringField(m, "methodology_summary"),
		Reasoning:            stringField(m, "reasoning"),
		Assumptions:          assumptionsField(m["critical_assumptions"]),
		ValidationCode:       strings.TrimSpace(stripFences(stringField(m, "simulation_python_code"))),
		SimulationData:       dataField(m["simulation_data"]),
		ReproducibilityScore: scoreField(m["reproducibility_score"]),
		CitationIntegrity:    integrityField(m["citation_integrity"]),
	}
	return res
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func scoreField(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return analysis.DefaultReproducibilityScore
}

func integrityField(v any) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return analysis.DefaultCitationIntegrity
}

func assumptionsField(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, analysis.MaxAssumptions)
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
		if len(out) == analysis.MaxAssumptions {
			break
		}
	}
	return out
}

func dataField(v any) []analysis.Point {
	arr, ok := v.([]any)
	if !ok {
		return []analysis.Point{}
	}
	out := make([]analysis.Point, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		x, xok := obj["x"].(float64)
		y, yok := obj["y"].(float64)
		if !xok || !yok {
			continue
		}
		out = append(out, analysis.Point{X: x, Y: y})
	}
	return out
}

func rawPrefix(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
