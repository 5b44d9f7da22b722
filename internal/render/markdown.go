// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// CodeStyle is the chroma style used for highlighted code blocks.
const CodeStyle = "github"

var (
	codeFormatter = chromahtml.New(chromahtml.WithClasses(true))

	// SECURITY: assistant output is untrusted HTML once converted.
	sanitizer = func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)).OnElements("span", "pre", "code", "div")
		return p
	}()
)

// MarkdownToHTML converts assistant Markdown into sanitized HTML.
// Fenced code blocks are syntax highlighted with CSS classes; see CodeCSS.
func MarkdownToHTML(src string) string {
	return markdownToHTML(src, true)
}

func markdownToHTML(src string, sanitize bool) string {
	// Parsers keep state and cannot be reused.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags:          mdhtml.CommonFlags,
		RenderNodeHook: codeBlockHook,
	})
	out := markdown.ToHTML([]byte(src), p, r)
	if !sanitize {
		return string(out)
	}
	return string(sanitizer.SanitizeBytes(out))
}

// CodeCSS returns the stylesheet for highlighted code blocks.
func CodeCSS() string {
	var buf strings.Builder
	if err := codeFormatter.WriteCSS(&buf, codeStyle()); err != nil {
		return ""
	}
	return buf.String()
}

func codeBlockHook(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	block, ok := node.(*ast.CodeBlock)
	if !ok {
		return ast.GoToNext, false
	}
	highlighted, err := highlightCode(string(block.Literal), string(block.Info))
	if err != nil {
		// Let the default renderer emit a plain <pre><code>.
		return ast.GoToNext, false
	}
	io.WriteString(w, highlighted)
	return ast.GoToNext, true
}

// highlightCode renders code as chroma HTML. An empty language is guessed.
func highlightCode(code, language string) (string, error) {
	lang := strings.TrimSpace(strings.SplitN(language, " ", 2)[0])

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := codeFormatter.Format(&buf, codeStyle(), iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func codeStyle() *chroma.Style {
	style := chromaStyles.Get(CodeStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return style
}
