package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fencedPlan = "Here is your plan!\n```json\n" + `{
  "summary": "Two-day physics sprint",
  "tasks": [
    {
      "title": "Chapter 1: Mechanics",
      "description": "Work through the chapter",
      "focusDuration": 60,
      "microTasks": [{"text": "Read intro"}, {"text": "Solve problems"}]
    }
  ],
  "tips": ["Start early"]
}` + "\n```\nGood luck!"

func TestParsePlanReply(t *testing.T) {
	t.Run("fenced plan", func(t *testing.T) {
		reply := ParsePlanReply(fencedPlan)
		require.NotNil(t, reply.Plan)
		assert.Equal(t, "Two-day physics sprint", reply.Plan.Summary)
		require.Len(t, reply.Plan.Tasks, 1)
		assert.Equal(t, "Chapter 1: Mechanics", reply.Plan.Tasks[0].Title)
		assert.Equal(t, 60, reply.Plan.Tasks[0].FocusDuration)
		assert.Len(t, reply.Plan.Tasks[0].MicroTasks, 2)
		assert.Equal(t, []string{"Start early"}, reply.Plan.Tips)

		// Conversational text survives, fences and JSON do not.
		assert.Contains(t, reply.Text, "Here is your plan!")
		assert.Contains(t, reply.Text, "Good luck!")
		assert.NotContains(t, reply.Text, "```")
		assert.NotContains(t, reply.Text, "summary")
	})

	t.Run("bare fence without language tag", func(t *testing.T) {
		content := "```\n{\"summary\": \"s\", \"tasks\": [{\"title\": \"T\", \"focusDuration\": 25}], \"tips\": []}\n```"
		reply := ParsePlanReply(content)
		require.NotNil(t, reply.Plan)
		assert.Equal(t, "T", reply.Plan.Tasks[0].Title)
	})

	t.Run("unfenced JSON recovered by brace scan", func(t *testing.T) {
		content := `Sure! {"summary": "s", "tasks": [{"title": "T", "focusDuration": 25}], "tips": []} Done.`
		reply := ParsePlanReply(content)
		require.NotNil(t, reply.Plan)
		assert.Equal(t, "T", reply.Plan.Tasks[0].Title)
	})

	t.Run("plain chat turn has no plan", func(t *testing.T) {
		reply := ParsePlanReply("What subject are you studying, and when is the exam?")
		assert.Nil(t, reply.Plan)
		assert.Equal(t, "What subject are you studying, and when is the exam?", reply.Text)
	})

	t.Run("truncated reply repaired", func(t *testing.T) {
		content := "```json\n" + `{
  "summary": "Cut off",
  "tasks": [
    {"title": "First task", "focusDuration": 25, "microTasks": []},
    {"title": "Second`
		reply := ParsePlanReply(content)
		require.NotNil(t, reply.Plan, "truncated plan should be repaired")
		require.NotEmpty(t, reply.Plan.Tasks)
		assert.Equal(t, "First task", reply.Plan.Tasks[0].Title)
	})

	t.Run("unrepairable garbage falls back to text", func(t *testing.T) {
		reply := ParsePlanReply("```json\n{{{{not json\n```")
		assert.Nil(t, reply.Plan)
		assert.NotContains(t, reply.Text, "```")
	})
}
