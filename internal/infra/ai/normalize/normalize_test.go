package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/infra/ai/prompt"
)

func TestNormalizeDelimitedObject(t *testing.T) {
	raw := `Here is my critique.
` + prompt.OpenTag + `{"methodology_summary":"X","critical_assumptions":["a","b","c","d"],"reproducibility_score":91,"citation_integrity":"High","simulation_python_code":"print(1)","simulation_data":[{"x":0,"y":0.95}]}` + prompt.CloseTag

	res, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "X", res.Summary)
	assert.Equal(t, []string{"a", "b", "c"}, res.Assumptions, "assumptions capped at 3, order preserved")
	assert.Equal(t, 91, res.ReproducibilityScore)
	assert.Equal(t, "High", res.CitationIntegrity)
	assert.Equal(t, "print(1)", res.ValidationCode)
	require.Len(t, res.SimulationData, 1)
	assert.Equal(t, analysis.Point{X: 0, Y: 0.95}, res.SimulationData[0])
}

func TestNormalizeSkipsEchoedDelimiters(t *testing.T) {
	// A model that repeats its instructions echoes the tag pair before the
	// actual payload; the last occurrence wins.
	raw := `The instructions said to wrap the object in ` + prompt.OpenTag + ` and ` + prompt.CloseTag + ` tags.
` + prompt.OpenTag + `{"methodology_summary":"real"}` + prompt.CloseTag

	res, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "real", res.Summary)
}

func TestNormalizeStripsThinkBlocks(t *testing.T) {
	raw := `<think>draft: {"methodology_summary":"wrong"}</think>
` + prompt.OpenTag + `{"methodology_summary":"right"}` + prompt.CloseTag

	res, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "right", res.Summary)
}

func TestNormalizeBraceFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare object without delimiters",
			raw:  `Sure, here it is: {"methodology_summary":"bare"}`,
			want: "bare",
		},
		{
			name: "object inside a markdown fence",
			raw:  "```json\n{\"methodology_summary\":\"fenced\"}\n```",
			want: "fenced",
		},
		{
			name: "nested braces inside string values",
			raw:  `{"methodology_summary":"uses {braces} inside","reasoning":"r"}`,
			want: "uses {braces} inside",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Summary)
		})
	}
}

func TestNormalizeSanitizesEllipsisPlaceholders(t *testing.T) {
	raw := prompt.OpenTag + `{"methodology_summary":"s","simulation_data":[{"x":1,"y":2},{"x":2,"y":3}, ...]}` + prompt.CloseTag

	res, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, res.SimulationData, 2)
	assert.Equal(t, analysis.Point{X: 1, Y: 2}, res.SimulationData[0])
	assert.Equal(t, analysis.Point{X: 2, Y: 3}, res.SimulationData[1])
}

func TestNormalizeKeepsEllipsisInsideStrings(t *testing.T) {
	raw := prompt.OpenTag + `{"methodology_summary":"the claim is... unclear"}` + prompt.CloseTag

	res, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "the claim is... unclear", res.Summary)
}

func TestNormalizeDefaults(t *testing.T) {
	res, err := Normalize(prompt.OpenTag + `{}` + prompt.CloseTag)
	require.NoError(t, err)
	assert.Equal(t, "", res.Summary)
	assert.Equal(t, []string{}, res.Assumptions)
	assert.Equal(t, []analysis.Point{}, res.SimulationData)
	assert.Equal(t, analysis.DefaultReproducibilityScore, res.ReproducibilityScore)
	assert.Equal(t, analysis.DefaultCitationIntegrity, res.CitationIntegrity)
}

func TestNormalizeFieldCoercions(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, res *analysis.Result)
	}{
		{
			name:    "score as quoted string",
			payload: `{"reproducibility_score":"42"}`,
			check: func(t *testing.T, res *analysis.Result) {
				assert.Equal(t, 42, res.ReproducibilityScore)
			},
		},
		{
			name:    "unparseable score falls back to default",
			payload: `{"reproducibility_score":"high"}`,
			check: func(t *testing.T, res *analysis.Result) {
				assert.Equal(t, analysis.DefaultReproducibilityScore, res.ReproducibilityScore)
			},
		},
		{
			name:    "non-string assumptions dropped",
			payload: `{"critical_assumptions":["a",5,"b"]}`,
			check: func(t *testing.T, res *analysis.Result) {
				assert.Equal(t, []string{"a", "b"}, res.Assumptions)
			},
		},
		{
			name:    "non-numeric data points dropped, order preserved",
			payload: `{"simulation_data":[{"x":1,"y":1},{"x":"nan","y":2},{"x":3,"y":3}]}`,
			check: func(t *testing.T, res *analysis.Result) {
				assert.Equal(t, []analysis.Point{{X: 1, Y: 1}, {X: 3, Y: 3}}, res.SimulationData)
			},
		},
		{
			name:    "blank integrity falls back to default",
			payload: `{"citation_integrity":"  "}`,
			check: func(t *testing.T, res *analysis.Result) {
				assert.Equal(t, analysis.DefaultCitationIntegrity, res.CitationIntegrity)
			},
		},
		{
			name:    "code fences stripped from validation code",
			payload: `{"simulation_python_code":"` + "```python\\nprint(1)\\n```" + `"}`,
			check: func(t *testing.T, res *analysis.Result) {
				assert.Equal(t, "print(1)", res.ValidationCode)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(prompt.OpenTag + tt.payload + prompt.CloseTag)
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestNormalizeFieldTagVariant(t *testing.T) {
	raw := `<SUMMARY>tagged summary</SUMMARY>
<SCORE>88</SCORE>
<INTEGRITY>Medium</INTEGRITY>
<ASSUMPTIONS>["one","two"]</ASSUMPTIONS>
<DATA>[{"x":0,"y":1}]</DATA>`

	res, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "tagged summary", res.Summary)
	assert.Equal(t, 88, res.ReproducibilityScore)
	assert.Equal(t, "Medium", res.CitationIntegrity)
	assert.Equal(t, []string{"one", "two"}, res.Assumptions)
	assert.Equal(t, []analysis.Point{{X: 0, Y: 1}}, res.SimulationData)
}

func TestNormalizeParseError(t *testing.T) {
	long := strings.Repeat("x", 300)
	_, err := Normalize(long)
	require.Error(t, err)

	var parseErr *analysis.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Len(t, parseErr.RawPrefix, 160, "diagnostic prefix capped")
	assert.True(t, strings.HasPrefix(long, parseErr.RawPrefix))
}

func TestNormalizeNeverDefaultsOnGarbage(t *testing.T) {
	// Unparseable output must surface as an error, never as an empty Result.
	for _, raw := range []string{"", "I cannot analyze this document.", "{broken"} {
		_, err := Normalize(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
