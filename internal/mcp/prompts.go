package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("daily_briefing",
		mcp.WithPromptDescription("Summarize today's work, deadlines, blockers and alerts from the overview"),
		mcp.WithArgument("audience",
			mcp.ArgumentDescription("Who the briefing is for, e.g. the team or a stakeholder"),
		),
	), s.handleDailyBriefingPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_layout",
		mcp.WithPromptDescription("Rearrange a role's dashboard so the most relevant widgets come first"),
		mcp.WithArgument("role",
			mcp.ArgumentDescription("Role whose layout to tidy (admin, pm, developer, designer, qa, client)"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyLayoutPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("triage_blockers",
		mcp.WithPromptDescription("Walk through open blockers and critical risks, oldest first"),
	), s.handleTriageBlockersPrompt)
}

func (s *Server) handleDailyBriefingPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	audience := req.Params.Arguments["audience"]
	if audience == "" {
		audience = "the team"
	}
	return userPrompt(
		fmt.Sprintf("Daily briefing for %s", audience),
		fmt.Sprintf(`Write a short daily briefing for %s. Follow these steps:

1. Call get_overview to read the current snapshot
2. List my work for today and anything due in the next few days (myWork, deadlines)
3. Call out blockers and critical alerts, including how many days each has been blocked
4. Summarize sprint progress and whether the sprint is on track
5. Mention any section whose status is "error" as unavailable instead of guessing

Keep it under 200 words.`, audience),
	), nil
}

func (s *Server) handleTidyLayoutPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	role := req.Params.Arguments["role"]
	return userPrompt(
		fmt.Sprintf("Tidy the %s dashboard", role),
		fmt.Sprintf(`Tidy the dashboard layout of the "%s" role. Follow these steps:

1. Call get_layout with role=%s to see the current widgets
2. Call get_overview and decide which widgets matter most right now
3. Use reorder_widget to move those to the top; pass role=%s every time
4. Hide widgets with nothing to show using set_widget_visibility rather than removing them
5. Use resize_widget sparingly: full for wide lists, sm for single metrics

If the layout is beyond repair, use reset_layout and start again.`, role, role, role),
	), nil
}

func (s *Server) handleTriageBlockersPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Triage blockers and risks",
		`Help me triage what is blocking delivery. Follow these steps:

1. Call get_overview with section=blockers and sort the items by daysBlocked, oldest first
2. Call get_overview with section=risks and pick out critical and high risks
3. For each blocker, suggest one concrete next action and who should own it
4. Group items that share a project

Finish with the three items to tackle first.`,
	), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
