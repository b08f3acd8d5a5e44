package prompts

import (
	"bytes"
	"strings"
	"text/template"
)

type StepRequestData struct {
	Summary     string
	Task        string
	StepContext string
}

type NextStepData struct {
	Clicked     string
	Task        string
	StepContext string
}

type HelpData struct {
	Task        string
	StepContext string
	Question    string
}

func GenerateStepRequest(data StepRequestData) (string, error) {
	return render("step_request", StepRequestTemplate, data)
}

func GenerateNextStep(data NextStepData) (string, error) {
	return render("next_step", NextStepTemplate, data)
}

func GenerateHelp(data HelpData) (string, error) {
	return render("help", HelpTemplate, data)
}

func render(name, baseTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}
