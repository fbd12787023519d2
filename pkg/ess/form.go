package ess

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// loginFormID is the id keycloak gives the username/password form.
const loginFormID = "kc-form-login"

// FindFormAction returns the action attribute of the first element in the
// HTML document whose id is formID. Entities in the attribute are unescaped.
// ErrFormNotFound is returned if there is no such element or it has no action.
func FindFormAction(r io.Reader, formID string) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("%w: %w", ErrFormNotFound, err)
			}
			return "", fmt.Errorf("%w: no element with id %q", ErrFormNotFound, formID)
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if attr(tok, "id") != formID {
				continue
			}
			action := strings.TrimSpace(attr(tok, "action"))
			if action == "" {
				return "", fmt.Errorf("%w: element %q has no action", ErrFormNotFound, formID)
			}
			return action, nil
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
