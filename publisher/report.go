package publisher

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"auto_manim_codegen/retry"
	"auto_manim_codegen/validation"
)

const summaryLimit = 80

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderReport summarizes a run as markdown.
func RenderReport(out *retry.Outcome) string {
	var sb strings.Builder
	sb.WriteString("# Scene generation report\n\n")
	if out.Session != nil {
		fmt.Fprintf(&sb, "- Session: `%s`\n", out.Session.ID)
		fmt.Fprintf(&sb, "- Attempts: %d/%d\n", out.Attempts, out.Session.MaxAttempts)
	} else {
		fmt.Fprintf(&sb, "- Attempts: %d\n", out.Attempts)
	}
	fmt.Fprintf(&sb, "- Status: **%s**\n\n", out.Status)

	if out.Problem != "" {
		fmt.Fprintf(&sb, "Oracle output was rejected: %s\n\n", out.Problem)
	}

	if len(out.Results) > 0 {
		sb.WriteString("| Scene | Class | Result | Duration | Summary |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, r := range out.Results {
			result := "pass"
			if !r.Success {
				result = "FAIL"
				if r.TimedOut {
					result = "TIMEOUT"
				}
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				r.UnitID, r.EntityName, result, r.Duration.Round(time.Millisecond), cell(summary(r, summaryLimit)))
		}
		sb.WriteString("\n")
	}

	if failed := validation.Failed(out.Results); len(failed) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, r := range failed {
			fmt.Fprintf(&sb, "### %s (%s)\n\n", r.UnitID, r.EntityName)
			sb.WriteString("```text\n")
			sb.WriteString(strings.TrimRight(r.Diagnostic, "\n"))
			sb.WriteString("\n```\n\n")
		}
	}

	if out.Session != nil && len(out.Session.History) > 0 {
		sb.WriteString("## Attempts\n\n")
		for _, t := range out.Session.History {
			if t.Problem != "" {
				fmt.Fprintf(&sb, "%d. schema mismatch: %s\n", t.Attempt, t.Problem)
				continue
			}
			fmt.Fprintf(&sb, "%d. %d/%d scene(s) passed\n", t.Attempt, len(t.Results)-len(validation.Failed(t.Results)), len(t.Results))
		}
	}
	return sb.String()
}

// WriteReport writes the report as markdown, or as HTML when path ends in
// .html.
func WriteReport(path string, out *retry.Outcome) error {
	content := RenderReport(out)
	if strings.EqualFold(filepath.Ext(path), ".html") {
		html, err := mdToHTML(content)
		if err != nil {
			return fmt.Errorf("render report html: %w", err)
		}
		content = html
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// summary is the last non-empty diagnostic line, compacted and cut to limit.
func summary(r validation.Result, limit int) string {
	if r.Success {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(r.Diagnostic), "\n")
	last := lines[len(lines)-1]
	joined := strings.Join(strings.Fields(last), " ")
	if len(joined) <= limit {
		return joined
	}
	return joined[:limit]
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
