package engine

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/provider"
	"github.com/werkbank-ai/werkbank/pkg/sandbox"
)

// codeBlockRe matches the first fenced code block, with or without a
// language tag.
var codeBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n(.*?)```")

// runWithFiles is the file-aware path: one code-producing inference call
// with a manifest of the session's files embedded in the prompt, then
// staging and a single execution of the extracted code block. If the
// reply contains no code block, the model's prose is returned unexecuted.
func (e *Engine) runWithFiles(ctx context.Context, sessionID, prompt string, refs []api.FileRef, runner *sandbox.Runner) ([]api.Turn, error) {
	history, err := e.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, api.NewServerError("load history: " + err.Error())
	}
	// The user turn for this prompt is already in the history; the
	// augmented version below replaces it for this inference call only.
	if n := len(history); n > 0 && history[n-1].Role == api.RoleUser {
		history = history[:n-1]
	}
	history = append(history, api.Turn{
		Role:    api.RoleUser,
		Content: buildFilePrompt(prompt, refs),
	})

	reply, err := e.complete(ctx, &provider.Request{
		Instructions: e.cfg.instructions(),
		History:      history,
		Temperature:  e.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	assistantTurn := reply.Turn
	if err := e.sessions.AppendTurns(ctx, sessionID, assistantTurn); err != nil {
		return nil, api.NewServerError("append assistant turn: " + err.Error())
	}
	newTurns := []api.Turn{assistantTurn}

	code := extractCodeBlock(assistantTurn.Content)
	if code == "" {
		return newTurns, nil
	}

	if _, err := runner.StageFiles(ctx, refs); err != nil {
		return nil, api.NewProvisioningError("stage files: " + err.Error())
	}

	result := runner.Run(ctx, code, nil)
	resultTurn := api.Turn{
		Role:    api.RoleAssistant,
		Content: renderResult(result),
		Raw:     result,
	}
	if err := e.sessions.AppendTurns(ctx, sessionID, resultTurn); err != nil {
		return nil, api.NewServerError("append result turn: " + err.Error())
	}
	return append(newTurns, resultTurn), nil
}

// buildFilePrompt embeds the file manifest and per-type load hints
// around the user's question. Remote paths are deterministic: files land
// in the sandbox working directory under their original names.
func buildFilePrompt(prompt string, refs []api.FileRef) string {
	var b strings.Builder
	b.WriteString("The user has uploaded the following files, available in the sandbox:\n")
	for _, ref := range refs {
		fmt.Fprintf(&b, "- %s (%s, %d bytes) at %s\n", ref.Name, ref.Type, ref.Size, remotePath(ref))
	}
	b.WriteString("\n")
	b.WriteString(loadHints(refs))
	b.WriteString("\nTask: ")
	b.WriteString(prompt)
	b.WriteString("\n\nRespond with a single Python code block that completes the task using the files above.")
	return b.String()
}

// remotePath returns the stable sandbox path for a file, derived from
// its original name.
func remotePath(ref api.FileRef) string {
	return path.Join("/workspace", ref.Name)
}

// loadHints enumerates, per file type present, the idiomatic way to load
// that kind of file.
func loadHints(refs []api.FileRef) string {
	types := make(map[string]bool)
	for _, ref := range refs {
		types[ref.Type] = true
	}

	var b strings.Builder
	if types["tabular"] {
		b.WriteString("Load tabular files with pandas (pd.read_csv, pd.read_excel, pd.read_parquet as appropriate).\n")
	}
	if types["text"] {
		b.WriteString("Read text files with open(path) and inspect their contents before processing.\n")
	}
	if types["image"] {
		b.WriteString("Open image files with PIL.Image.open.\n")
	}
	return b.String()
}

// extractCodeBlock returns the body of the first fenced code block, or
// "" if the text contains none.
func extractCodeBlock(text string) string {
	m := codeBlockRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// renderResult formats an execution result for display: stdout inline,
// stderr and interpreter errors as flagged sections, artifacts counted
// (their bytes ride on the turn's Raw for the post-processor).
func renderResult(result *api.ExecutionResult) string {
	var b strings.Builder
	if result.Stdout != "" {
		b.WriteString(result.Stdout)
	}
	if result.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[stderr]\n")
		b.WriteString(result.Stderr)
	}
	if result.Error != nil {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[error] %s: %s", result.Error.Name, result.Error.Message)
	}
	if n := len(result.Artifacts); n > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d visualization(s) generated]", n)
	}
	if b.Len() == 0 {
		b.WriteString("(no output)")
	}
	return b.String()
}
