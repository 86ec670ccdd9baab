package briefing

import (
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/DailyBriefing/internal/collector"
	"github.com/LJTian/DailyBriefing/internal/processor"
)

// DateLayout is used in both the prompt and the delivered greeting.
const DateLayout = "Monday, January 2, 2006"

const instructions = `You are a world-class editor for an intelligent daily news briefing.
Today is %s. Below are two lists of headlines gathered from RSS feeds.

Write a concise morning briefing with exactly two sections:

1. General News: select the 4-5 most important stories from the general list and give
   each one a single, impactful sentence summarizing the key takeaway.
2. AI & Tech: for each notable story from the AI/tech list, give a one-sentence summary
   followed by a line starting with "Why it matters:" explaining its significance.

Keep the source link next to every story you mention. Format the whole output for a chat
channel using Markdown, with bold headlines. If a list is empty, say so briefly in that
section instead of inventing stories.
`

// BuildPrompt renders the single prompt sent to the model. Identical buckets and date
// always give an identical prompt.
func BuildPrompt(date time.Time, b processor.Buckets) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, instructions, date.Format(DateLayout))

	sb.WriteString("\nGeneral headlines:\n")
	writeEntries(&sb, b.General)

	sb.WriteString("\nAI/tech headlines:\n")
	writeEntries(&sb, b.AI)

	return sb.String()
}

func writeEntries(sb *strings.Builder, entries []collector.Entry) {
	if len(entries) == 0 {
		sb.WriteString("- (none)\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sb, "- %s (%s)\n", e.Title, e.URL)
		if e.Summary != "" {
			fmt.Fprintf(sb, "  %s\n", e.Summary)
		}
	}
}

// Greeting is the header line prepended to the delivered message.
func Greeting(date time.Time) string {
	return fmt.Sprintf("## Your Morning Briefing: %s\n", date.Format(DateLayout))
}
