package contact

import (
	"bytes"
	"html/template"
)

var emailTemplate = template.Must(template.New("contact").Parse(`<html>
<body>
    <h2>New Contact Form Submission</h2>
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Subject:</strong> {{.Subject}}</p>
    <p><strong>Message:</strong></p>
    <p style="white-space: pre-wrap">{{.Message}}</p>
</body>
</html>
`))

// RenderEmail returns the subject line and HTML body sent to the site owner.
// Every field is HTML-escaped.
func RenderEmail(s Submission) (string, string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, s); err != nil {
		return "", "", err
	}
	return s.Subject, buf.String(), nil
}
