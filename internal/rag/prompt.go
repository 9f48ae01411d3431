package rag

import "strings"

// BasePrompt is the system instruction used when no passages were
// retrieved.
const BasePrompt = `You are a helpful assistant specializing in handball, particularly European handball and coaching education.
Your primary expertise is in the EHF RINCK Convention and coaching frameworks.

When answering questions:
1. Be concise and clear - keep answers under 2-3 paragraphs
2. Use markdown formatting to structure your responses:
   - Use **bold** for important terms
   - Use bullet points for lists
   - Use ### for section headings
   - Use > for important quotes or definitions
3. Break down complex information into clear sections
4. Focus on the most relevant information first

Remember: Be brief but informative. If the user wants more details, they can ask follow-up questions.`

const passageSeparator = "\n\n---\n\n"

const groundingInstructions = `Instructions for using this context:
1. Prioritize information from the provided context when answering questions
2. When citing the RINCK Convention, prefer direct quotation over paraphrase
3. Reproduce enumerated or coded list items (such as competence codes) verbatim and completely; never summarize away entries
4. If a numbering sequence in the context appears to skip values, point out the gap instead of papering over it
5. If the context does not fully address the question, say so rather than inventing convention text
6. Keep responses focused on handball coaching education and the RINCK Convention`

// BuildSystemPrompt assembles the grounding prompt from retrieved
// passages. Passages are joined in input order; an empty input yields
// the base prompt. Deterministic, no side effects.
func BuildSystemPrompt(passages []Passage) string {
	if len(passages) == 0 {
		return BasePrompt
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Content)
	}

	var sb strings.Builder
	sb.WriteString(BasePrompt)
	sb.WriteString("\n\nHere is some relevant context from the EHF RINCK Convention Manual:\n\n")
	sb.WriteString(strings.Join(texts, passageSeparator))
	sb.WriteString("\n\n")
	sb.WriteString(groundingInstructions)
	return sb.String()
}
