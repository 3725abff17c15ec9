// Package htmlform extracts the submittable content of HTML forms.
//
// It exists for clients that emulate a browser walking an OpenID redirect
// sequence: each hop serves a page whose first form must be re-posted, so
// all the client needs from the markup is that form's action URL and its
// named input values.
package htmlform

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrNoForm is returned when the document contains no form element.
	ErrNoForm = errors.New("htmlform: no form found")

	// ErrNoAction is returned when the first form has no action attribute.
	ErrNoAction = errors.New("htmlform: form has no action")
)

// Form is the submittable content of the first form in a document: where to
// post and what to post, ready for application/x-www-form-urlencoded
// encoding. Action is returned exactly as served and may be relative; the
// caller must resolve it against the URL of the page that carried the form.
type Form struct {
	Action string
	Fields url.Values
}

// Parse extracts the first form in the document. Later forms are ignored.
//
// Input filtering follows what a browser would submit, with one OpenID
// wrinkle: plain submit buttons are dropped, because posting every button
// would assert contradictory choices, except inputs whose name carries the
// "decided_" prefix. Those are the provider's allow/deny consent buttons and
// the caller decides which of them to keep. Inputs without a name never
// reach the server and are skipped; an input without a value attribute is
// kept with an empty value rather than omitted.
func Parse(r io.Reader) (*Form, error) {
	z := html.NewTokenizer(r)

	var form *Form

	for {
		switch z.Next() {
		case html.ErrorToken:
			err := z.Err()
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("htmlform: read document: %w", err)
			}
			// Unclosed form at EOF: take what was collected.
			if form == nil {
				return nil, ErrNoForm
			}
			return form, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "form":
				if form != nil {
					continue
				}
				action, ok := attrValue(tok, "action")
				if !ok || action == "" {
					return nil, ErrNoAction
				}
				form = &Form{Action: action, Fields: url.Values{}}

			case "input":
				if form == nil {
					continue
				}
				name, ok := attrValue(tok, "name")
				if !ok || name == "" {
					continue
				}
				typ, _ := attrValue(tok, "type")
				if strings.EqualFold(typ, "submit") && !strings.HasPrefix(name, "decided_") {
					continue
				}
				value, _ := attrValue(tok, "value")
				form.Fields.Set(name, value)
			}

		case html.EndTagToken:
			tok := z.Token()
			if tok.Data == "form" && form != nil {
				return form, nil
			}
		}
	}
}

func attrValue(tok html.Token, name string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
