package services

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed welcome.txt
var welcomeText string

var welcomeTemplate = template.Must(template.New("welcome").Parse(welcomeText))

// RenderWelcome renders the exam introduction shown to unlicensed accounts at
// login, with publicURL substituted, split into lines.
func RenderWelcome(publicURL string) ([]string, error) {
	var b strings.Builder
	err := welcomeTemplate.Execute(&b, struct{ URL string }{URL: strings.TrimRight(publicURL, "/")})
	if err != nil {
		return nil, fmt.Errorf("render welcome: %w", err)
	}
	return strings.Split(strings.TrimRight(b.String(), "\n"), "\n"), nil
}
