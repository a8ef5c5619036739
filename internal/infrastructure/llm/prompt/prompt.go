// Package prompt holds the chat prompts shared by the model backends.
package prompt

import (
	"fmt"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// Chat is a system/user message pair.
type Chat struct {
	System string
	User   string
}

const localSystem = `You answer questions using only the provided context.
Use concrete details from the context and cite them as [Source N].
If the context does not contain the answer, say so plainly.`

const globalSystem = `You write broad overviews from community summaries of a knowledge graph.
Combine what several communities say into a high-level picture.
Focus on themes, patterns and how topics relate across the dataset.`

const hybridSystem = `You answer questions using both high-level community summaries and specific details.
Give the big picture from the summaries first, then support it with details.
Cite documents as [Source N] and communities as [Community N].`

// ForMode builds the prompt for a search mode. Auto must be resolved to
// local or global before calling.
func ForMode(mode domain.SearchMode, query, contextText string) Chat {
	if mode == domain.SearchHybrid {
		return Chat{
			System: hybridSystem,
			User: fmt.Sprintf(`%s

Question: %s

Answer by first giving the high-level picture from the community summaries, then supporting it with specific details from the documents and entities. Cite sources.`, contextText, query),
		}
	}
	if mode == domain.SearchGlobal {
		return Chat{
			System: globalSystem,
			User: fmt.Sprintf(`Community Summaries:
%s

Question: %s

Answer by synthesizing the community summaries above. Keep to the big picture and key themes.`, contextText, query),
		}
	}
	return Chat{
		System: localSystem,
		User: fmt.Sprintf(`Context:
%s

Question: %s

Give a detailed answer based on the context above and cite sources as [Source N].`, contextText, query),
	}
}
