package agent

import (
	"fmt"
	"strings"
)

// FilterResult is the acceptability filter's decision.
type FilterResult struct {
	Acceptable bool   `json:"acceptable"`
	Reason     string `json:"reason"`
}

// ExtractionResult is the cleaned semantic search query.
type ExtractionResult struct {
	ExtractedQuery string `json:"extracted_query"`
	Explanation    string `json:"explanation"`
}

// AnswerResult is the final grounded answer.
type AnswerResult struct {
	Answer string `json:"answer"`
}

// SynthesizedCourse mirrors a retrieved course when the model generates the
// list directly instead of the vector store.
type SynthesizedCourse struct {
	CourseCode        string  `json:"courseCode"`
	CourseName        string  `json:"courseName"`
	CourseDescription string  `json:"courseDescription"`
	RelevanceScore    float64 `json:"relevanceScore"`
}

type CourseListResult struct {
	Courses []SynthesizedCourse `json:"courses"`
}

const filterPrompt = `Your task is to analyze a user message and determine if the message satisfies the following criteria:

1) The message is comprehensible
2) The message does not contain professionally inappropriate language
3) The message subject is related to courses at the {{.institution}}

You will output a JSON object that adheres to the following TypeScript interface:

{
    acceptable: boolean,
    reason: string
}

You will set the acceptable field to true if the message satisfies the criteria listed earlier.
Otherwise, set the acceptable field to false.
In either case, set the reason field to be a string explaining why the message is or is not acceptable.
Ensure that the reason string is short and to the point.

The user message is given below:
{{.userMessage}}
`

const extractionSystemPrompt = `You are an AI that helps extract semantic search queries from user messages.

You will be given a user message. Your task is to identify and extract key snippets that are directly relevant to the subject of the message. You will remove any verbs, commands, conversational dialogue, or unnecessary words from the original message. You will output one or more concise snippets that only contain key information. The output should read like a semantic search query.
For context, the user message will be related to university courses. Assume that you already know which university the user is interested in, so remove any text about the university itself.
Follow the rules in the rules section.

# Rules
- Remove action verbs or directives like "fetch", "show", "give me", "retrieve", etc
- Keep nouns and adjectives (except the university name)
- Prefer outputs that are sentences rather than just keywords. This means you need to strip away words from the original message, but not so much that the output is reduced to being just keywords
- Remove any text about the university itself, such as the name of a university (University of Waterloo, Harvard, MIT, university of Toronto, Cambridge University, etc)
- Remove the word "course" and its plural forms

# Output format

You will output a JSON object that adheres to the following format:
{
    extracted_query: string,
    explanation: string
}

The extracted_query field should contain the extracted query snippet taken from the original user message.
The explanation field should contain an explanation of the actions taken to extract the query. This explanation should be concise and to the point.

# Examples
{{.examples}}
The user message is given below:
{{.userMessage}}
`

// fewShotExample is one demonstrated input/output pair for the extraction
// prompt.
type fewShotExample struct {
	UserMessage string
	Query       string
	Explanation string
}

var extractionExamples = []fewShotExample{
	{
		UserMessage: "Fetch me a list of UW courses that are related to machine learning or deep learning.",
		Query:       "machine learning or deep learning",
		Explanation: "The verbs at the start of the sentence were removed, and the words 'UW courses' were removed.",
	},
	{
		UserMessage: "Can you give me a list of first-year computer science courses at the university of michigan?",
		Query:       "first year computer science",
		Explanation: "The introductory phrase was removed, leaving only the relevant course information.",
	},
	{
		UserMessage: "Can you provide resources on natural language processing and deep learning at the University of Waterloo?",
		Query:       "natural language processing and deep learning",
		Explanation: "The request phrase was removed, retaining only the topics of interest.",
	},
	{
		UserMessage: "What are the prerequisites for taking CS341?",
		Query:       "prerequisites for CS341",
		Explanation: "The question format was simplified to focus on the prerequisites.",
	},
	{
		UserMessage: "Give me a list of third year courses about classical art and music. Sort the list of courses in alphabetical order",
		Query:       "third year classical art and music",
		Explanation: "The action and sorting instructions were omitted, highlighting the relevant subjects.",
	},
	{
		UserMessage: "What courses are there at UPENN which deal with renaissance art?",
		Query:       "renaissance art",
		Explanation: "The inquiry aspect was removed, concentrating on the specific subject matter.",
	},
	{
		UserMessage: "What courses are related to computer science?",
		Query:       "computer science",
		Explanation: "The verbs at the start of the sentence were removed, and the words 'courses' were removed.",
	},
}

// renderExamples formats the few-shot pairs as human/ai turns the way the
// extraction prompt expects them.
func renderExamples(examples []fewShotExample) string {
	var b strings.Builder
	for _, ex := range examples {
		fmt.Fprintf(&b, "Human: %s\n", ex.UserMessage)
		fmt.Fprintf(&b, "AI: {\n    \"extracted_query\": \"%s\",\n    \"explanation\": \"%s\"\n}\n\n", ex.Query, ex.Explanation)
	}
	return b.String()
}

const courseListPrompt = `You are an AI that recommends courses from the {{.institution}} catalog.

You will be given a user message about courses. Produce a list of 3 to 5 plausible matching courses.

You will output a JSON object that adheres to the following format:
{
    courses: [
        {
            courseCode: string,
            courseName: string,
            courseDescription: string,
            relevanceScore: number
        }
    ]
}

The relevanceScore field must be a number between 0 and 1, where higher means more relevant to the user message.

The user message is given below:
{{.userMessage}}
`

const answerPrompt = `You are a helpful assistant that can answer questions about the context.
Answer the question based only on the following context:
{{.context}}
 - -
Answer the question based on the above context: {{.question}}

You will output a JSON object that adheres to the following format:
{
    answer: string
}

If the context is empty or contains no relevant courses, set the answer field to a short statement that no relevant courses were found.
`
