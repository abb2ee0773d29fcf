package advisor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the instruction templates sent to the model. Templates use
// {code}, {question}, {output} and {expected} placeholders.
type Prompts struct {
	Analyze string `yaml:"analyze"`
	Check   string `yaml:"check"`
	Suggest string `yaml:"suggest"`
	Chat    string `yaml:"chat"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Analyze: `You are a programming teacher reviewing a student's Lua solution.

Question:
{question}

Student code:
{code}

Program output:
{output}

Score the solution and give short, encouraging feedback aimed at a beginner.
Rate overall_score 0-100 and time_complexity, space_complexity, readability,
stability each 0-10.`,
		Check: `Compare the program output against the expected output for this exercise.

Question:
{question}

Student code:
{code}

Actual output:
{output}

Expected output:
{expected}

Respond with JSON only, no markdown fences:
{"match": true or false, "score": 0-100, "differences": ["..."]}
Ignore trailing whitespace and minor formatting. An empty differences list
means the outputs agree.`,
		Suggest: `A student is stuck on this Lua exercise.

Question:
{question}

Their code so far:
{code}

Give one concrete hint that moves them forward without writing the solution
for them. Two or three sentences, plain language.`,
		Chat: `You are a friendly Lua programming tutor inside a learning playground.
Answer the student's questions simply and briefly. When they share code, refer
to it. Never write a full solution to the current exercise; guide with hints.

Current exercise:
{question}

Student's current code:
{code}`,
	}
}

// LoadPrompts reads templates from a YAML file, falling back to the built-in
// template for any field the file leaves empty.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts: %w", err)
	}

	p := &Prompts{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing prompts: %w", err)
	}

	defaults := DefaultPrompts()
	if p.Analyze == "" {
		p.Analyze = defaults.Analyze
	}
	if p.Check == "" {
		p.Check = defaults.Check
	}
	if p.Suggest == "" {
		p.Suggest = defaults.Suggest
	}
	if p.Chat == "" {
		p.Chat = defaults.Chat
	}
	return p, nil
}

func renderPrompt(tmpl string, sub Submission) string {
	question := sub.Question
	if question == "" {
		question = "(not provided)"
	}
	output := sub.Output
	if output == "" {
		output = "(no output)"
	}
	r := strings.NewReplacer(
		"{code}", sub.Code,
		"{question}", question,
		"{output}", output,
		"{expected}", sub.Expected,
	)
	return r.Replace(tmpl)
}
