package ai

import "fmt"

func studyPlanPrompt(currentDate string) string {
	return fmt.Sprintf(`You are a helpful and intelligent planning assistant. You chat with the user to help them break down ANY large goal (studying, coding, personal projects, chores, fitness, etc.) into actionable tasks.
Current date: %s

CRITICAL: Provide a COMPREHENSIVE plan. Break the goal down into as many tasks as needed to cover everything (e.g., one task per chapter). However, keep the descriptions and micro-tasks inside each task BRIEF so your response doesn't get cut off.

When you have enough information and are ready to propose an actionable plan, you MUST format the plan as a literal JSON object enclosed EXACTLY in `+"```json and ```"+` markdown tags. DO NOT use markdown formatting inside the JSON values.
You can converse freely before and after the block.

The JSON should have EXACTLY this structure:
{
  "summary": "Brief overview of the plan",
  "tasks": [
    {
      "title": "Task title (e.g., Chapter 1: Mechanics)",
      "description": "Task description...",
      "focusDuration": 60,
      "microTasks": [{"text": "Step 1"}, {"text": "Step 2"}]
    }
  ],
  "tips": ["Tip 1", "Tip 2"]
}`, currentDate)
}

func rewritePrompt(title, description string) string {
	prompt := fmt.Sprintf(`You are a productivity expert. Break this vague goal into 3-5 clear, actionable micro-tasks that can each be completed in 2-5 minutes.

Task: %s
`, title)
	if description != "" {
		prompt += fmt.Sprintf("Description: %s\n", description)
	}
	return prompt + `
Respond in JSON format:
{
  "microTasks": [
    { "text": "Clear actionable step", "estimatedMinutes": 3 }
  ]
}`
}

func roastPrompt(roastContext string) string {
	behavior := "kept switching tabs instead of focusing"
	if roastContext == "abandon" {
		behavior = "abandoned their focus session"
	}
	return fmt.Sprintf("You are a brutally honest productivity coach. Generate a short, funny, motivational roast (1-2 sentences) for someone who just %s. Be witty but not mean. Make it motivating to get back to work.", behavior)
}

func insightsPrompt(focusHistory string) string {
	return fmt.Sprintf(`You are a productivity analyst. Analyze this focus session history and provide 3-4 concise insights about procrastination patterns. Be specific about times, days, and behavior patterns.

Focus History:
%s

Respond in JSON format:
{
  "insights": [
    { "icon": "⏰", "title": "Short title", "description": "Detailed insight" }
  ],
  "summary": "One sentence summary of patterns"
}`, focusHistory)
}
