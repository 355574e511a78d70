package accounts

import (
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
)

// VerificationPath is appended to the link base address, followed by the token id
const VerificationPath = "/account/verify/"

// DefaultVerificationSubject is the subject of verification emails
const DefaultVerificationSubject = "Confirm your email address"

// DefaultVerificationTemplate is the pongo2 source of the verification email.
// It receives email, link and expires_at.
const DefaultVerificationTemplate = `<!doctype html>
<html>
<body>
<p>Hello {{ email }},</p>
<p>Please confirm your email address by following <a href="{{ link }}">this link</a>:</p>
<p>{{ link }}</p>
<p>The link is valid until {{ expires_at|date:"2006-01-02 15:04 MST" }}.</p>
</body>
</html>
`

// VerificationEmailRenderer builds verification emails from a template.
type VerificationEmailRenderer struct {
	Subject string
	tpl     *pongo2.Template
}

// NewVerificationEmailRenderer compiles source, falling back to
// DefaultVerificationTemplate when source is empty.
func NewVerificationEmailRenderer(source string) (*VerificationEmailRenderer, error) {
	if strings.TrimSpace(source) == "" {
		source = DefaultVerificationTemplate
	}

	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification email template")
	}

	return &VerificationEmailRenderer{
		Subject: DefaultVerificationSubject,
		tpl:     tpl,
	}, nil
}

// MustVerificationEmailRenderer is like NewVerificationEmailRenderer but panics
func MustVerificationEmailRenderer(source string) *VerificationEmailRenderer {
	r, err := NewVerificationEmailRenderer(source)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *VerificationEmailRenderer) Render(to, link string, expiresAt time.Time) (Email, error) {
	html, err := r.tpl.Execute(pongo2.Context{
		"email":      to,
		"link":       link,
		"expires_at": expiresAt.UTC(),
	})
	if err != nil {
		return Email{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render verification email")
	}

	return Email{
		To:      to,
		Subject: r.Subject,
		HTML:    html,
	}, nil
}

// VerificationLink joins base, VerificationPath and the token id
func VerificationLink(base, tokenID string) string {
	return strings.TrimRight(base, "/") + VerificationPath + tokenID
}
