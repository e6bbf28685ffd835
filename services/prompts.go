package services

import (
	"strings"

	"github.com/andrei-assa/fda-gpt/models"
)

const translationExamples = `
Translate the user's question into a query for the FDA API, using these examples for reference:

Example Question: "What are the warnings associated with Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["warnings"], "limit": 10}

Example Question: "What should I do if I overdose on acetaminophen?"
JSON: {"search_params": [{"openfda.generic_name": "acetaminophen"}], "fields_to_return": ["overdosage"], "limit": 10}

Example Question: "Can you provide a description of Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["description"], "limit": 10}

Example Question: "What are the side effects of Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["adverse_reactions"], "limit": 10}

Example Question: "How should Xarelto be administered?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["dosage_and_administration"], "limit": 10}

Example Question: "Who manufactures Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["manufacturer_name"], "limit": 10}

Example Question: "Is there any specific information that patients should know about Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["information_for_patients"], "limit": 10}

Example Question: "Under what conditions should I stop using Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["questions", "stop_use"], "limit": 10}

Example Question: "What are the contraindications for Eliquis?"
JSON: {"search_params": [{"openfda.brand_name": "eliquis"}], "fields_to_return": ["contraindications"], "limit": 10}

Example Question: "What is the abuse potential for Adderall?"
JSON: {"search_params": [{"openfda.brand_name": "adderall"}], "fields_to_return": ["abuse"], "limit": 10}

Example Question: "What is the abuse potential for Morphine?"
JSON: {"search_params": [{"openfda.generic_name": "morphine"}], "fields_to_return": ["abuse"], "limit": 10}

Example Question: "Indications for Xarelto?"
JSON: {"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["indications_and_usage"], "limit": 10}

The following fields are available for filtering and returning; only use these fields, do not use any other fields:

`

// TranslationSystemPrompt is the instruction sent with every question to
// obtain a structured search.
var TranslationSystemPrompt = func() string {
	var b strings.Builder
	b.WriteString(translationExamples)
	for _, f := range models.LabelFields {
		b.WriteString(string(f))
		b.WriteString("\n")
	}
	return b.String()
}()

const SummarizeSystemPrompt = `
Provide a detailed report to answer the user's question using the following information. Structure the report as follows:
- Summary:
- Key points:
- Details:
`

// ExampleQuestion is shown to users on an empty chat.
type ExampleQuestion struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
}

var ExampleQuestions = []ExampleQuestion{
	{Heading: "What are side-effects of Xarelto?", Message: "What are side-effects of Xarelto?"},
	{Heading: "Are there any pregnancy warnings for lisinopril?", Message: "Are there any pregnancy warnings for lisinopril?"},
	{Heading: "What is the mechanism of action of Opdivo?", Message: "What is the mechanism of action of Opdivo?"},
}
