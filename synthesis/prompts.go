package synthesis

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/groundwork/core"
)

const systemInstruction = `You are a question answering assistant. Answer using ONLY the information in the context below.
If the context does not contain the answer, say that you could not find it in the available information.
Do not invent facts, names, numbers, dates or URLs. Be factual and concise (under 100 words).`

const knowledgeGrounding = "The context consists of passages from the user's knowledge base, most relevant first."

const webGroundingTemplate = `The context consists of web search results from %s, most relevant first.
Prefer the most recent information and say so when it may be outdated.`

// NoContextAnswer is returned when neither local knowledge nor web search
// produced anything to answer from.
const NoContextAnswer = "I couldn't find relevant information. Try uploading a document or rephrasing your question."

const (
	// DefaultHistoryTurns is how many prior turns are included in prompts.
	DefaultHistoryTurns = 2
	// DefaultHistoryAnswerLimit truncates prior answers in prompts.
	DefaultHistoryAnswerLimit = 150
	// DegradedAnswerLimit truncates the snippet used as a degraded answer.
	DegradedAnswerLimit = 500
)

// buildPrompt assembles the grounded prompt. History is rendered oldest
// first, limited to the last historyTurns turns.
func buildPrompt(question string, c Context, history []core.ConversationTurn, historyTurns, answerLimit int, now time.Time) string {
	var b strings.Builder

	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	if c.Kind == KindWeb {
		fmt.Fprintf(&b, "Current date: %s\n\n", now.Format(time.DateOnly))
	}

	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	if len(history) > 0 && historyTurns > 0 {
		b.WriteString("Conversation so far (oldest first):\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, truncate(turn.Answer, answerLimit))
		}
		b.WriteString("\n")
	}

	b.WriteString("Context:\n")
	if c.Kind == KindWeb {
		fmt.Fprintf(&b, webGroundingTemplate, c.Provider)
		b.WriteString("\n\n")
		for i, r := range c.WebResults {
			fmt.Fprintf(&b, "[%d] %s", i+1, r.Title)
			if r.URL != "" {
				fmt.Fprintf(&b, " (%s)", r.URL)
			}
			fmt.Fprintf(&b, "\n%s\n\n", r.Snippet)
		}
	} else {
		b.WriteString(knowledgeGrounding)
		b.WriteString("\n\n")
		for i, ch := range c.Chunks {
			fmt.Fprintf(&b, "[%d]", i+1)
			if title := chunkTitle(ch); title != "" {
				fmt.Fprintf(&b, " %s", title)
			}
			fmt.Fprintf(&b, " (relevance %.2f)\n%s\n\n", core.ClampScore(ch.Score), ch.Text)
		}
	}

	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return strings.TrimSpace(string(r[:limit-3])) + "..."
}
