package content

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"uk.co.dudmesh.crosspost/internal/model"
)

// Decoded is the plain text of one status plus whatever the first
// destination link in it turned out to be.
type Decoded struct {
	Text    string
	Command *model.Command
	Mention string // "@handle" when the first destination link was a profile link
}

var commandMarkers = map[string]model.CommandType{
	"Reply":  model.CommandTypeReply,
	"Repost": model.CommandTypeRepost,
	"Quote":  model.CommandTypeQuote,
}

type decoder struct {
	profilePrefix string
}

// NewDecoder returns a decoder that treats links under webURL/profile/ as
// destination links, e.g. webURL = "https://bsky.app".
func NewDecoder(webURL string) *decoder {
	return &decoder{profilePrefix: strings.TrimRight(webURL, "/") + "/profile/"}
}

func (d *decoder) Decode(fragment string) (*Decoded, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	decoded := &Decoded{}
	if anchor := d.firstDestinationAnchor(root); anchor != nil {
		href := attr(anchor, "href")
		if command := commandBefore(anchor, href); command != nil {
			decoded.Command = command
			exciseCommand(anchor)
		} else if handle, ok := d.profileHandle(href); ok {
			decoded.Mention = "@" + handle
			anchor.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: decoded.Mention}, anchor)
			anchor.Parent.RemoveChild(anchor)
		}
	}

	decoded.Text = TextContent(root)
	return decoded, nil
}

func (d *decoder) firstDestinationAnchor(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.A && strings.HasPrefix(attr(n, "href"), d.profilePrefix) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := d.firstDestinationAnchor(child); found != nil {
			return found
		}
	}
	return nil
}

// profileHandle matches {base}/profile/{handle} with nothing after the handle.
func (d *decoder) profileHandle(href string) (string, bool) {
	handle := strings.TrimPrefix(href, d.profilePrefix)
	if handle == "" || strings.ContainsAny(handle, "/?#") {
		return "", false
	}
	return handle, true
}

func commandBefore(anchor *html.Node, href string) *model.Command {
	prev := anchor.PrevSibling
	if prev == nil || prev.Type != html.TextNode {
		return nil
	}
	commandType, ok := commandMarkers[strings.TrimSpace(prev.Data)]
	if !ok {
		return nil
	}
	return &model.Command{Type: commandType, PostURL: href}
}

// exciseCommand removes the marker text, the anchor and a directly
// following <br>.
func exciseCommand(anchor *html.Node) {
	parent := anchor.Parent
	parent.RemoveChild(anchor.PrevSibling)
	if next := anchor.NextSibling; next != nil && next.Type == html.ElementNode && next.DataAtom == atom.Br {
		parent.RemoveChild(next)
	}
	parent.RemoveChild(anchor)
}

// TextContent flattens a tree to text: <br> becomes a newline and every
// paragraph is followed by a blank line. The result is trimmed.
func TextContent(n *html.Node) string {
	sb := strings.Builder{}
	writeText(&sb, n)
	text := strings.ReplaceAll(sb.String(), "\r\n", "\n")
	return strings.TrimSpace(text)
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			sb.WriteString("\n")
			return
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		writeText(sb, child)
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.P {
		sb.WriteString("\n\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
