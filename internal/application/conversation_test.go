package application_test

import (
	"fmt"
	"testing"

	"voice-home/internal/application"
	"voice-home/internal/domain"
)

func TestConversation_WindowAndLimit(t *testing.T) {
	c := application.NewConversation(30, 10)

	for i := 0; i < 20; i++ {
		c.Record(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := c.Turns()
	if len(turns) != 30 {
		t.Fatalf("kept %d turns, want 30", len(turns))
	}
	if turns[0].Content != "q5" {
		t.Errorf("oldest kept turn = %q, want q5", turns[0].Content)
	}

	p := c.Prompt("next question")
	if len(p.History) != 10 {
		t.Fatalf("sent %d turns, want 10", len(p.History))
	}
	if p.History[0].Content != "q15" || p.History[0].Role != domain.RoleUser {
		t.Errorf("first sent turn = %+v", p.History[0])
	}
	if p.History[9].Content != "a19" || p.History[9].Role != domain.RoleAssistant {
		t.Errorf("last sent turn = %+v", p.History[9])
	}
	if p.Message != "next question" {
		t.Errorf("message = %q", p.Message)
	}
}

func TestConversation_PromptIsACopy(t *testing.T) {
	c := application.NewConversation(0, 0)
	c.Record("hi", "hello")

	p := c.Prompt("again")
	p.History[0].Content = "changed"

	if c.Turns()[0].Content != "hi" {
		t.Error("prompt history aliases conversation state")
	}
}

func TestInstructionFor(t *testing.T) {
	smart := application.InstructionFor("suggest a song for cooking")
	general := application.InstructionFor("who wrote hamlet?")

	if smart == general {
		t.Fatal("expected different instructions")
	}
	if application.InstructionFor("Is my home secure?") != smart {
		t.Error("home topic should use the smart home context")
	}
	if application.InstructionFor("homework help") != general {
		t.Error("keywords match whole words only")
	}
}
