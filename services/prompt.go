package services

import (
	"fmt"
	"strings"
)

const transcriptionPrompt = "Transcribe the audio accurately and naturally. Keep proper punctuation and split the text into paragraphs where appropriate."

// BuildAnswerPrompt asks for an answer grounded only in the given transcriptions
func BuildAnswerPrompt(question string, contexts []string) string {
	return fmt.Sprintf(`Based on the text provided below as context, answer the question clearly and precisely.

CONTEXT:
%s

QUESTION:
%s

INSTRUCTIONS:
- Use only information contained in the provided context.
- If the answer is not found in the context, say that there is not enough information to answer.
- Be objective.
- Keep an educational and professional tone.
- Quote relevant passages of the context when appropriate, referring to them as "the class content".`,
		strings.Join(contexts, "\n\n"), question)
}
