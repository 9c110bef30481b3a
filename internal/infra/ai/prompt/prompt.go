package prompt

// Delimiter contract shared with the normalizer. These tokens are part of the
// wire protocol between this service and the model; change one side and the
// other stops recognizing payloads.
const (
	OpenTag  = "<FINAL_JSON>"
	CloseTag = "</FINAL_JSON>"
)

// Per-field tag pairs for the alternate schema variant.
const (
	SummaryTag     = "SUMMARY"
	ReasoningTag   = "REASONING"
	AssumptionsTag = "ASSUMPTIONS"
	CodeTag        = "CODE"
	DataTag        = "DATA"
	ScoreTag       = "SCORE"
	IntegrityTag   = "INTEGRITY"
)

// MaxDocumentChars caps the document text appended to the prompt.
const MaxDocumentChars = 15000

// Variant selects the response-delimiter contract.
type Variant int

const (
	// VariantJSONTag: a single JSON object wrapped in OpenTag/CloseTag.
	VariantJSONTag Variant = iota
	// VariantFieldTags: one tag pair per field.
	VariantFieldTags
)

const preamble = `You are a meticulous research methodology reviewer. Critique the document below for methodological rigor, reproducibility and citation integrity.

Rules:
- Never use ellipsis ("...") or placeholder values inside generated numeric arrays. Emit every data point in full.
- simulation_data must be an array of {"x": <number>, "y": <number>} objects.
- critical_assumptions lists at most 3 short strings.
- reproducibility_score is an integer from 0 to 100.
- citation_integrity is one of "High", "Medium", "Low" or a short free-text label.
- simulation_python_code is a short, runnable Python snippet that validates the core claim.`

const jsonSchema = `{
  "methodology_summary": "<string>",
  "reasoning": "<string>",
  "critical_assumptions": ["<string>"],
  "simulation_python_code": "<string>",
  "simulation_data": [{"x": 0, "y": 0}],
  "reproducibility_score": 0,
  "citation_integrity": "<string>"
}`

// Build constructs the outbound instruction text for the given contract
// variant, appending the (possibly truncated) document text last.
func Build(documentText string, v Variant) string {
	doc := Truncate(documentText)

	switch v {
	case VariantFieldTags:
		return preamble + `

Respond with each field wrapped in its own tag pair, nothing else:
<` + SummaryTag + `>methodology summary</` + SummaryTag + `>
<` + ReasoningTag + `>reasoning</` + ReasoningTag + `>
<` + AssumptionsTag + `>["assumption 1"]</` + AssumptionsTag + `>
<` + CodeTag + `>python code</` + CodeTag + `>
<` + DataTag + `>[{"x": 0, "y": 0}]</` + DataTag + `>
<` + ScoreTag + `>75</` + ScoreTag + `>
<` + IntegrityTag + `>High</` + IntegrityTag + `>

Document:
` + doc
	default:
		return preamble + `

Respond with exactly one JSON object following this schema, wrapped in ` + OpenTag + ` and ` + CloseTag + ` tags, nothing else:
` + jsonSchema + `

Document:
` + doc
	}
}

// Truncate enforces the fixed character cap before transmission.
func Truncate(s string) string {
	if len(s) <= MaxDocumentChars {
		return s
	}
	return s[:MaxDocumentChars]
}
