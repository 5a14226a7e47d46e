package gateway

import "fmt"

// ChatPrompt asks the model to answer query from context alone.
func ChatPrompt(query, context string) string {
	return fmt.Sprintf(`You are a helpful AI assistant that answers questions about PDF documents.
Use the following context from the PDF to answer the user's question. If the answer cannot be found in the context, say so clearly.

Context from PDF:
%s

User Question: %s

Please provide a helpful and accurate answer based on the context provided:`, context, query)
}

func SummaryPrompt(content string) string {
	return fmt.Sprintf(`Please provide a comprehensive summary of the following PDF content.
Focus on the main points, key findings, and important information.
Make the summary clear, concise, and well-structured:

%s

Summary:`, content)
}

// TranslatePrompt takes the display name of the target language, not its code.
func TranslatePrompt(content, language string) string {
	return fmt.Sprintf(`Please translate the following text to %s.
Maintain the original meaning, tone, and structure as much as possible.
If there are technical terms or proper nouns, keep them in their original form if appropriate:

%s

Translation:`, language, content)
}

func QuestionsPrompt(content string, n int) string {
	return fmt.Sprintf(`Based on the following PDF content, generate %d thoughtful and relevant questions that would help someone understand and engage with the material.
Include a mix of factual, analytical, and critical thinking questions.
Format your response as a numbered list:

%s

Questions:`, n, content)
}
