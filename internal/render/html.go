// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jeranaias/crmchat/internal/model"
	"github.com/jeranaias/crmchat/internal/util"
)

// LatestID marks the element ScrollToLatest last targeted, so a saved
// transcript can be opened at transcript.html#latest.
const LatestID = "latest"

const transcriptCSS = `
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; }
.message-wrapper { display: flex; flex-direction: column; margin: 0.75rem 0; }
.message-wrapper.user { align-items: flex-end; }
.bubble { padding: 0.5rem 0.9rem; border-radius: 1rem; max-width: 85%; }
.bubble.user { background: #1d4ed8; color: #e0f2fe; white-space: pre-wrap; }
.bubble.assistant { background: #f5f3ff; color: #3b3655; }
.agent-badge { font-size: 0.75rem; color: #92400e; margin-bottom: 0.25rem; }
.error-msg { color: #991b1b; border-left: 3px solid #e11d48; padding-left: 0.5rem; margin: 0.75rem 0; }
`

// HTML is a View that builds the conversation as a DOM tree.
type HTML struct {
	mu     sync.Mutex
	root   *html.Node
	latest *html.Node
	// trusted skips sanitizing assistant HTML.
	trusted bool
}

// NewHTML returns an empty conversation container.
func NewHTML() *HTML {
	return &HTML{root: element(atom.Div, "messages", "messages")}
}

// SetTrusted controls whether raw HTML in assistant replies survives.
// The default strips scripts, event handlers and unknown attributes.
func (h *HTML) SetTrusted(trusted bool) {
	h.mu.Lock()
	h.trusted = trusted
	h.mu.Unlock()
}

func (h *HTML) RenderMessage(msg model.Message) {
	role := msg.Role.String()
	wrapper := element(atom.Div, "", "message-wrapper "+role)
	bubble := element(atom.Div, "", "bubble "+role)

	if msg.IsUser() {
		bubble.AppendChild(&html.Node{Type: html.TextNode, Data: msg.Body})
	} else {
		h.mu.Lock()
		sanitize := !h.trusted
		h.mu.Unlock()
		for _, n := range parseFragment(markdownToHTML(msg.Body, sanitize)) {
			bubble.AppendChild(n)
		}
		if msg.HasBadge() {
			badge := element(atom.Span, "", "agent-badge")
			badge.AppendChild(&html.Node{Type: html.TextNode, Data: msg.Badge()})
			wrapper.AppendChild(badge)
		}
	}
	wrapper.AppendChild(bubble)

	h.mu.Lock()
	h.root.AppendChild(wrapper)
	h.mu.Unlock()
	h.ScrollToLatest()
}

func (h *HTML) RenderError(message string) {
	el := element(atom.Div, "", "error-msg")
	el.AppendChild(&html.Node{Type: html.TextNode, Data: model.ErrorNotice(message)})

	h.mu.Lock()
	h.root.AppendChild(el)
	h.mu.Unlock()
	h.ScrollToLatest()
}

// ScrollToLatest moves the #latest anchor to the last entry.
func (h *HTML) ScrollToLatest() {
	h.mu.Lock()
	defer h.mu.Unlock()

	last := h.root.LastChild
	if last == nil || last == h.latest {
		return
	}
	if h.latest != nil {
		removeAttr(h.latest, "id")
	}
	last.Attr = append(last.Attr, html.Attribute{Key: "id", Val: LatestID})
	h.latest = last
}

// Clear removes every entry.
func (h *HTML) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := h.root.FirstChild; c != nil; {
		next := c.NextSibling
		h.root.RemoveChild(c)
		c = next
	}
	h.latest = nil
}

// Len reports how many entries the container holds.
func (h *HTML) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := h.root.FirstChild; c != nil; c = c.NextSibling {
		n++
	}
	return n
}

// WriteDocument writes a standalone HTML page holding the conversation.
func (h *HTML) WriteDocument(w io.Writer, title string) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element(atom.Html, "", "")
	head := element(atom.Head, "", "")
	meta := element(atom.Meta, "", "")
	meta.Attr = append(meta.Attr, html.Attribute{Key: "charset", Val: "utf-8"})
	titleEl := element(atom.Title, "", "")
	titleEl.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	style := element(atom.Style, "", "")
	style.AppendChild(&html.Node{Type: html.TextNode, Data: transcriptCSS + CodeCSS()})
	head.AppendChild(meta)
	head.AppendChild(titleEl)
	head.AppendChild(style)

	body := element(atom.Body, "", "")
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	doc.AppendChild(htmlEl)

	h.mu.Lock()
	defer h.mu.Unlock()

	// The container is borrowed for the render and detached again after.
	body.AppendChild(h.root)
	defer body.RemoveChild(h.root)

	return html.Render(w, doc)
}

// Save writes the document to path atomically.
func (h *HTML) Save(path, title string) error {
	var buf bytes.Buffer
	if err := h.WriteDocument(&buf, title); err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func element(a atom.Atom, id, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if id != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: id})
	}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	return n
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// parseFragment parses rendered markup as children of a <div>.
func parseFragment(markup string) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(markup), element(atom.Div, "", ""))
	if err != nil {
		return []*html.Node{{Type: html.TextNode, Data: markup}}
	}
	return nodes
}
