package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/nikhilbhutani/reportportal/internal/queue"
)

const (
	DefaultTitle      = "Reports Updated"
	DefaultIntro      = "We are writing to inform you that our Power BI dashboards have been updated with the latest data."
	DefaultButtonText = "Access Dashboard"

	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

//go:embed templates/*.html
var templateFiles embed.FS

var reportUpdatedTmpl = template.Must(template.ParseFS(templateFiles, "templates/report_updated.html"))

// Message is a rendered mail ready for delivery.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Content is the data the notification template renders.
type Content struct {
	AppName     string
	AppURL      string
	Name        string
	Title       string
	Intro       string
	ButtonText  string
	Footer      string
	UpdateDate  string
	UpdateTime  string
	TrackingURL string
}

// TrackingURL is the link in the mail button. Following it records the
// click and redirects to the dashboard.
func TrackingURL(appURL, userID string) string {
	return strings.TrimRight(appURL, "/") + "/tracking/email-click/" + userID
}

func Subject(title, appName string) string {
	return title + " - " + appName
}

func Render(c Content) (string, error) {
	var buf bytes.Buffer
	if err := reportUpdatedTmpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}

// BuildMessage renders the notification described by a queued payload.
func BuildMessage(appName, appURL string, p queue.ReportUpdatedPayload) (Message, error) {
	html, err := Render(Content{
		AppName:     appName,
		AppURL:      strings.TrimRight(appURL, "/"),
		Name:        p.Name,
		Title:       p.Title,
		Intro:       p.Intro,
		ButtonText:  p.ButtonText,
		Footer:      p.Footer,
		UpdateDate:  p.UpdateDate,
		UpdateTime:  p.UpdateTime,
		TrackingURL: TrackingURL(appURL, p.UserID),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      p.Email,
		ToName:  p.Name,
		Subject: Subject(p.Title, appName),
		HTML:    html,
	}, nil
}
