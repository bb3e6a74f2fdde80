package checks

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-pulse/pkg/targets"
)

const (
	TypeHTMLTitle = "html_title"

	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// htmlTitleCheck requires a CSS selector (default: title) to yield
// non-empty text in the fetched page.
type htmlTitleCheck struct{}

func (htmlTitleCheck) Type() string { return TypeHTMLTitle }

func (htmlTitleCheck) Evaluate(tgt targets.Target, payload any) error {
	body, ok := payload.([]byte)
	if !ok {
		return fmt.Errorf("target %q html check needs a raw body", tgt.ID)
	}
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	selector := targets.ConfigString(tgt, targets.ConfigSelectorKey, "title")
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return fmt.Errorf("target %q page has no element matching %q", tgt.ID, selector)
	}
	if strings.TrimSpace(node.Text()) == "" {
		return fmt.Errorf("target %q selector %q matched an empty element", tgt.ID, selector)
	}
	return nil
}
