package generator

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"auto_manim_codegen/codespec"
)

// PostProcess turns the raw model reply into a CodeSpec or a schema problem.
func PostProcess(raw string) codespec.ParseResult {
	reply := strings.TrimSpace(raw)
	var res codespec.ParseResult
	if reply == "" {
		res = codespec.Invalid("model returned an empty response")
	} else {
		res = codespec.Decode(extractJSON(reply))
	}
	res.Raw = raw
	return res
}

// extractJSON prefers the first fenced block labelled json (or unlabelled),
// then falls back to the outermost brace span. A reply that opens with a brace
// skips the fence search; trailing commentary is still cut off.
func extractJSON(reply string) []byte {
	src := []byte(reply)
	if strings.HasPrefix(reply, "{") {
		return braceSpan(src)
	}
	if block := fencedJSON(src); block != nil {
		return block
	}
	return braceSpan(src)
}

func braceSpan(src []byte) []byte {
	start := bytes.IndexByte(src, '{')
	end := bytes.LastIndexByte(src, '}')
	if start >= 0 && end > start {
		return src[start : end+1]
	}
	return src
}

func fencedJSON(src []byte) []byte {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var found []byte
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found != nil {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(string(block.Language(src)))
		if lang != "" && lang != "json" {
			return ast.WalkSkipChildren, nil
		}
		var buf bytes.Buffer
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		found = buf.Bytes()
		return ast.WalkStop, nil
	})
	return found
}
