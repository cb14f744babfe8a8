package assistant

import "strings"

// WakePhrases activate the assistant when contained in an utterance. Bare
// "mistral" also matches inside longer words such as "administral".
var WakePhrases = []string{
	"hey mistral",
	"hi mistral",
	"hello mistral",
	"mistral",
	"arise",
}

const ExitPhrase = "exit"

const (
	Greeting     = "Hello! I'm your voice assistant. Say 'Hey Mistral' to start, or 'exit' to quit."
	Farewell     = "Goodbye! Have a great day!"
	Acknowledge  = "Yes, I'm listening. How can I help you?"
	ErrorApology = "I encountered an error. Please try again."
)

func containsAny(text string, patterns []string) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func IsWake(text string) bool { return containsAny(text, WakePhrases) }

func IsExit(text string) bool { return containsAny(text, []string{ExitPhrase}) }
