package prompt

import (
	"strings"
	"testing"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func TestForModeLocal(t *testing.T) {
	chat := ForMode(domain.SearchLocal, "How much protein?", "[Source 1]\n1g per kg")
	if !strings.Contains(chat.System, "[Source N]") {
		t.Fatalf("local system prompt must ask for citations: %q", chat.System)
	}
	if !strings.HasPrefix(chat.User, "Context:\n[Source 1]\n1g per kg") || !strings.Contains(chat.User, "Question: How much protein?") {
		t.Fatalf("unexpected user prompt: %q", chat.User)
	}
}

func TestForModeGlobal(t *testing.T) {
	chat := ForMode(domain.SearchGlobal, "Main themes?", "[Community 1: Sleep]")
	if !strings.HasPrefix(chat.User, "Community Summaries:\n[Community 1: Sleep]") {
		t.Fatalf("unexpected user prompt: %q", chat.User)
	}
	if !strings.Contains(chat.System, "community summaries") {
		t.Fatalf("unexpected system prompt: %q", chat.System)
	}
}

func TestForModeHybrid(t *testing.T) {
	chat := ForMode(domain.SearchHybrid, "Protein and sleep?", "## High-Level Context (Communities)")
	if !strings.HasPrefix(chat.User, "## High-Level Context (Communities)\n\nQuestion: Protein and sleep?") {
		t.Fatalf("unexpected user prompt: %q", chat.User)
	}
	if !strings.Contains(chat.User, "high-level picture") || !strings.Contains(chat.System, "big picture") {
		t.Fatalf("hybrid prompts must put summaries before details: %+v", chat)
	}
}
