package generator

import (
	"fmt"
	"strings"
)

// Prompt is the message set sent to the LLM. History holds the earlier turns
// of the conversation, oldest first; User is the turn being asked now.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one prior turn.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const systemPrompt = `You are a Manim Community Edition engineer. You turn scene descriptions into
structured scene code. Respond with ONE JSON object and nothing else:

{
  "imports": ["from manim import *"],
  "scenes": [
    {
      "scene_id": "scene_1",            // stable id, reuse it on every retry
      "class_name": "IntroScene",       // python class name, subclass of Scene
      "setup_code": ["..."],            // optional statements run first
      "objects": [
        {"object_id": "o1", "var_name": "circle", "constructor": "Circle(radius=1)", "add_to_scene": false}
      ],
      "animations": [
        {"animation_id": "a1", "call": "Create(circle)", "run_time": 1.5}
      ]
    }
  ]
}

Rules:
- Use only classes, methods and animations that exist in Manim. If unsure, leave it out.
- Restrict imports to "from manim import *".
- "call" is the argument of self.play(...), not the full statement.
- scene_id uses only letters, digits, "_" and "-".
- Always include "objects" and "animations", even when empty.
- Keep scene_id values stable across attempts.`

// BuildInitialPrompt 构造首轮提示词。
func BuildInitialPrompt(brief Brief) Prompt {
	return Prompt{
		System: systemPrompt,
		User:   initialRequest(brief),
	}
}

// BuildRetryPrompt replays the earlier attempts as conversation history and
// asks for a corrected CodeSpec. The feedback of the last exchange is the new
// user turn. With no earlier attempts it is the initial prompt.
func BuildRetryPrompt(brief Brief, earlier []Exchange) Prompt {
	if len(earlier) == 0 {
		return BuildInitialPrompt(brief)
	}

	history := make([]Message, 0, 2*len(earlier))
	history = append(history, Message{Role: RoleUser, Content: initialRequest(brief)})
	for i, ex := range earlier {
		history = append(history, Message{Role: RoleAssistant, Content: replyText(ex.Reply)})
		if i < len(earlier)-1 {
			history = append(history, Message{Role: RoleUser, Content: ex.Feedback})
		}
	}

	var sb strings.Builder
	sb.WriteString("Your previous CodeSpec was rejected.\n\n")
	sb.WriteString(earlier[len(earlier)-1].Feedback)
	sb.WriteString("\nRegenerate the complete CodeSpec JSON with the same scene_id values, fixing every issue above.")
	return Prompt{
		System:  systemPrompt,
		User:    sb.String(),
		History: history,
	}
}

func initialRequest(brief Brief) string {
	return briefText(brief) + "\nGenerate the CodeSpec JSON for these scenes."
}

// 空回复也要占一个 assistant 轮次，否则对话角色会错位。
func replyText(reply string) string {
	if strings.TrimSpace(reply) == "" {
		return "(empty response)"
	}
	return reply
}

func briefText(brief Brief) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic: %s\n", brief.Topic))
	if plan := strings.TrimSpace(brief.ScenePlan); plan != "" {
		sb.WriteString("Scene plan:\n```json\n")
		sb.WriteString(plan)
		sb.WriteString("\n```\n")
	}
	if len(brief.Constraints) > 0 {
		sb.WriteString("Constraints:\n")
		for _, c := range brief.Constraints {
			sb.WriteString(fmt.Sprintf("- %s\n", c))
		}
	}
	return sb.String()
}
