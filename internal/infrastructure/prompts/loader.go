package prompts

import (
	_ "embed"
)

//go:embed conversation.txt
var ConversationPrompt string

//go:embed guidance.txt
var GuidancePrompt string

//go:embed planning.txt
var PlanningPrompt string

//go:embed step_request.txt
var StepRequestTemplate string

//go:embed next_step.txt
var NextStepTemplate string

//go:embed help.txt
var HelpTemplate string
