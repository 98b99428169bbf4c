package enrich

import (
	"fmt"

	"github.com/poiesic/druglabel/core"
)

const rewriteInstructions = `You are an expert in clinical data presentation. Convert the raw HTML drug labeling content below into clear, fully detailed, human-readable HTML for healthcare providers.

Rules:

1. Preserve all information. Do not summarize, simplify, or omit clinical content, numeric values, or regulatory language.
2. Convert tables to labeled text or lists where that makes row and column relationships explicit, and keep the order of the data.
3. Keep every section heading and its order.
4. Use only these tags: <p>, <h1>, <h2>, <h3>, <h4>, <h5>, <h6>, <ul>, <ol>, <li>, <table>, <thead>, <tbody>, <tfoot>, <tr>, <th>, <td>. Remove or replace every other tag, including <div>, <span>, <br> and <sup>.
5. Every <table> must contain both <thead> and <tbody>.
6. Do not add, infer, or complete content. The output must reflect only the source HTML.
7. Return raw HTML only. No code fences, no Markdown, no commentary.
8. Do not interpret the data or generate recommendations.
9. Do not use generalizing phrases such as "may include", "commonly known as" or "typically".
10. Remove superscript tags and their contents, including footnote markers.

Here is the HTML content to process:

`

const summarySystemPrompt = "You are a precise summarization assistant. Your task is to create accurate, concise summaries that contain only information explicitly stated in the source text. Never add facts, details, or information that is not present in the original content. Focus on extracting and condensing the key information while maintaining factual accuracy."

const summaryConstraints = "IMPORTANT: Only include information that is explicitly stated in the original text. Do not add any facts, details, or information not present in the source. Do not make assumptions or inferences beyond what is written."

const tagSystemPrompt = "You are a medical data extraction assistant."

func rewritePrompt(input string) string {
	return rewriteInstructions + input
}

func summaryPrompt(task, limit, input string) string {
	prompt := task + " " + summaryConstraints
	if limit != "" {
		prompt += " " + limit
	}
	return prompt + "\n\n## Original content:\n" + input + "\n### END OF Original content"
}

func metaDescriptionPrompt(input string) string {
	return summaryPrompt("Please summarize the following content accurately and concisely.", "The summary must have a max of 60 characters.", input)
}

func descriptionPrompt(input string) string {
	return summaryPrompt("Please summarize the following drug description accurately and concisely in one short paragraph.", "", input)
}

func useAndConditionsPrompt(input string) string {
	return summaryPrompt("Please summarize what the drug is used for and the conditions it treats, based on the following content.", "Use at most three sentences.", input)
}

func contraindicationsPrompt(input string) string {
	return summaryPrompt("Please summarize the contraindications stated in the following content.", "Use at most three sentences.", input)
}

func warningsPrompt(input string) string {
	return summaryPrompt("Please summarize the most important warnings and precautions stated in the following content.", "Use at most three sentences.", input)
}

func dosingPrompt(input string) string {
	return summaryPrompt("Please summarize the dosing and available strengths stated in the following content.", "Use at most three sentences.", input)
}

type tagPromptSpec struct {
	task    string
	key     string
	format  string
	rules   []string
	example string
	tags    []string
}

func (s tagPromptSpec) render(input string) string {
	prompt := s.task + "\n\n## Output Format:\nReturn only a JSON object with the key \"" + s.key + "\" holding an array of strings. " + s.format + "\n\n## Extraction Rules:\n"
	for _, rule := range s.rules {
		prompt += "- " + rule + "\n"
	}
	prompt += "\n## Example Input:\n\"" + s.example + "\"\n\n## Expected Output:\n{\"" + s.key + "\": ["
	for i, tag := range s.tags {
		if i > 0 {
			prompt += ", "
		}
		prompt += fmt.Sprintf("%q", tag)
	}
	return prompt + "]}\n\n### Input:\n" + input
}

var tagPromptSpecs = map[core.TagKind]tagPromptSpec{
	core.TagCondition: {
		task:   "Extract the conditions or diseases that the drug is indicated to treat. Focus only on medically recognized conditions, not symptoms, procedures, or populations.",
		key:    "tags",
		format: "Each item must be a concise, human-readable term such as \"Hypertension\" or \"Type 2 diabetes\".",
		rules: []string{
			"Include only diagnosed conditions or diseases.",
			"Do not include patient populations, treatment goals, symptoms, or dosage information.",
			"Use generic terms only, no brand names, abbreviations, or drug names.",
			"Normalize plurals and use sentence case.",
		},
		example: "Lisinopril is indicated for the treatment of hypertension in adults and pediatric patients 6 years and older. It is also indicated to reduce signs and symptoms of heart failure and to improve survival in patients with acute myocardial infarction.",
		tags:    []string{"Hypertension", "Heart failure", "Acute myocardial infarction"},
	},
	core.TagSubstance: {
		task:   "Extract the active substances or pharmaceutical ingredients named in the drug description.",
		key:    "substances",
		format: "Each item must be the human-readable name of a substance such as \"Lisinopril\" or \"Insulin glargine\".",
		rules: []string{
			"Include only active chemical substances, biologic agents, or defined ingredients.",
			"Do not include brand names, excipients, inactive ingredients, or dosage forms.",
			"Normalize common spelling variants.",
			"Capitalize the first letter only.",
		},
		example: "This product contains metformin hydrochloride as the active ingredient. It also includes povidone, magnesium stearate, and microcrystalline cellulose.",
		tags:    []string{"Metformin hydrochloride"},
	},
	core.TagIndication: {
		task:   "Extract the indications for which the drug is prescribed. Focus only on conditions or diseases the drug is used to treat or manage.",
		key:    "indications",
		format: "Each item must be a concise medical term such as \"Rheumatoid arthritis\".",
		rules: []string{
			"Include only conditions explicitly treated by the drug.",
			"Do not include symptoms, patient populations, therapeutic goals, dosage details, or procedures.",
			"Use proper medical terminology with no slang, abbreviations, or brand names.",
			"Normalize plurals and use sentence case.",
		},
		example: "Lisinopril is indicated for the treatment of hypertension in adults and pediatric patients 6 years and older. It is also indicated to reduce signs and symptoms of heart failure.",
		tags:    []string{"Hypertension", "Heart failure"},
	},
	core.TagStrength: {
		task:   "Extract the strengths and concentrations in which the drug is available.",
		key:    "strengths",
		format: "Each item must be a dosage strength or concentration such as \"10 mg\", \"100 mg/mL\" or \"0.1%\".",
		rules: []string{
			"Include only the strength, dose, or concentration of the active ingredient.",
			"Do not include package quantities or dosing frequencies.",
			"List each strength as a separate item.",
			"Preserve casing and spacing as written.",
		},
		example: "This product is supplied as tablets containing 10 mg, 20 mg, or 40 mg of lisinopril. An oral solution is also available in 1 mg/mL concentration.",
		tags:    []string{"10 mg", "20 mg", "40 mg", "1 mg/mL"},
	},
	core.TagPopulation: {
		task:   "Extract the patient populations for which the drug is approved, recommended, or restricted.",
		key:    "populations",
		format: "Each item must be a concise population group such as \"Pediatric\" or \"Renal impairment\".",
		rules: []string{
			"Include only explicitly referenced populations such as age groups, pregnancy, lactation, or organ impairment.",
			"Do not include usage notes, dosage instructions, or treatment goals.",
			"Normalize phrases into consistent categories.",
			"Use sentence case.",
		},
		example: "This medication is indicated in adults and children aged 6 years and older. Use in geriatric patients should be closely monitored. Dosage adjustment may be required in patients with renal impairment.",
		tags:    []string{"Adult", "Pediatric", "Geriatric", "Renal impairment"},
	},
	core.TagContraindication: {
		task:   "Extract the contraindications of the drug: conditions or patient scenarios where the drug is explicitly not recommended.",
		key:    "contraindications",
		format: "Each item must be a concise term such as \"Angioedema\" or \"Severe renal impairment\".",
		rules: []string{
			"Include only conditions or population characteristics stated as contraindications.",
			"Do not include side effects, general warnings, dosage information, or indications.",
			"Use sentence case.",
			"Use generic clinical terms only.",
		},
		example: "Use of this drug is contraindicated in patients with a history of angioedema related to previous ACE inhibitor therapy. It should also not be used during pregnancy.",
		tags:    []string{"Angioedema", "Pregnancy"},
	},
}

var tagPrompts = func() map[core.TagKind]func(string) string {
	out := make(map[core.TagKind]func(string) string, len(tagPromptSpecs))
	for kind, spec := range tagPromptSpecs {
		out[kind] = spec.render
	}
	return out
}()
