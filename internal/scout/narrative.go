package scout

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/pkg/anthropic"
)

// narrativeTopN is how many leading candidates the summary covers.
const narrativeTopN = 3

const narrativeSystemPrompt = `You are a data center site selection analyst
writing for a commercial real estate audience. Summarize the site scoring
results you are given in 3-5 sentences: lead with the strongest site and
why, note any disqualifications or material risks, and close with a
recommendation. Plain prose, no headings or lists.`

// streamNarrative asks Claude for a short narrative over the leading
// candidates and forwards each streamed token as a summary_chunk event.
func (p *Pipeline) streamNarrative(ctx context.Context, cands []model.RankedCandidate, emit EmitFunc) error {
	brief := narrativeBrief(cands)
	if brief == "" {
		return nil
	}

	resp, err := p.llm.StreamMessage(ctx, anthropic.MessageRequest{
		Model:     p.llmModel,
		MaxTokens: 1024,
		System: []anthropic.SystemBlock{
			{Text: narrativeSystemPrompt},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: brief},
		},
	}, func(chunk string) {
		emit(Event{Type: EventSummaryChunk, Chunk: chunk})
	})
	if err != nil {
		return eris.Wrap(err, "scout: narrative summary")
	}
	resp.Usage.LogCost(p.llmModel, "narrative")
	return nil
}

// narrativeBrief renders the fully scored leaders as compact facts for the
// prompt. Quick-scored-only candidates carry too little signal to narrate.
func narrativeBrief(cands []model.RankedCandidate) string {
	var b strings.Builder
	n := 0
	for _, c := range cands {
		if c.DCScore == nil {
			continue
		}
		fmt.Fprintf(&b, "Rank %d: APN %s", c.Rank, c.APN)
		if c.Address != "" {
			fmt.Fprintf(&b, " (%s)", c.Address)
		}
		if c.Acres != nil {
			fmt.Fprintf(&b, ", %.1f acres", *c.Acres)
		}
		fmt.Fprintf(&b, " — composite %d (%s), power %d/40, fiber %d/30, water %d/20, environmental %d/10",
			c.DCScore.Composite, c.DCScore.Tier,
			c.DCScore.Power, c.DCScore.Fiber, c.DCScore.Water, c.DCScore.Environmental)
		if c.DCScore.Disqualified {
			b.WriteString(", DISQUALIFIED")
		}
		if c.Degraded {
			b.WriteString(", scored from degraded data")
		}
		if len(c.DCScore.RiskFlags) > 0 {
			fmt.Fprintf(&b, ", risks: %s", strings.Join(c.DCScore.RiskFlags, "; "))
		}
		b.WriteString("\n")

		n++
		if n >= narrativeTopN {
			break
		}
	}
	return b.String()
}
