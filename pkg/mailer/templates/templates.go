package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

// OTP email templates rendered by the email worker. Data keys:
// Name, Code, ExpiresInMinutes, AppName.

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #222;">
    <h2>{{.Heading}}</h2>
    <p>Hi {{.Name}},</p>
    <p>{{.Intro}}</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>This code expires in {{.ExpiresInMinutes}} minutes and can be used once.</p>
    <p>If you did not request this, you can ignore this email.</p>
    <p>&mdash; {{.AppName}}</p>
  </body>
</html>`))

type renderData struct {
	Heading          string
	Intro            string
	Name             string
	Code             string
	ExpiresInMinutes any
	AppName          string
}

// Render produces subject, text and html bodies for a named template.
// Supported templates: "signup_otp", "login_otp".
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	d := renderData{
		Name:             str(data, "Name"),
		Code:             str(data, "Code"),
		ExpiresInMinutes: data["ExpiresInMinutes"],
		AppName:          str(data, "AppName"),
	}
	if d.ExpiresInMinutes == nil {
		d.ExpiresInMinutes = 15
	}
	switch name {
	case "signup_otp":
		subject = "Welcome! Confirm your email"
		d.Heading = "Confirm your email"
		d.Intro = "Use this code to finish creating your account:"
	case "login_otp":
		subject = "Your login code"
		d.Heading = "Your login code"
		d.Intro = "Use this code to sign in:"
	default:
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err = otpHTML.Execute(&buf, d); err != nil {
		return "", "", "", err
	}
	text = fmt.Sprintf("%s\n\nYour code: %s\nIt expires in %v minutes and can be used once.", d.Intro, d.Code, d.ExpiresInMinutes)
	return subject, text, buf.String(), nil
}

func str(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
