package service

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log"
	texttemplate "text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"skillsprint/internal/models"
)

// sesAPI is the subset of the SES client the service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client       sesAPI
	fromEmail    string
	fromName     string
	appBaseURL   string
	supportEmail string
	enabled      bool
	debug        bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and skips every send.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL, supportEmail string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Email service will skip sending all emails")
		}
		return &EmailService{appBaseURL: appBaseURL, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From: %s <%s>", fromName, fromEmail)
		log.Printf("[DEBUG] App Base URL: %s", appBaseURL)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, supportEmail, debug), nil
}

func newEmailServiceWithClient(client sesAPI, fromEmail, fromName, appBaseURL, supportEmail string, debug bool) *EmailService {
	return &EmailService{
		client:       client,
		fromEmail:    fromEmail,
		fromName:     fromName,
		appBaseURL:   appBaseURL,
		supportEmail: supportEmail,
		enabled:      true,
		debug:        debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

const emailLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #1f2933; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #0f766e; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f8fafc; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #0f766e; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #64748b; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>{{.Heading}}</h1></div>
		<div class="content">{{template "body" .}}</div>
		<div class="footer"><p>This is an automated email from SkillSprint. Please do not reply.</p></div>
	</div>
</body>
</html>`

var (
	resetHTML = htmltemplate.Must(htmltemplate.Must(htmltemplate.New("reset").Parse(emailLayout)).Parse(`{{define "body"}}
			<p>Hi {{.Name}},</p>
			<p>We received a request to reset the password for your SkillSprint account.</p>
			<p style="text-align: center;"><a href="{{.Link}}" class="button">Reset Password</a></p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #64748b;">{{.Link}}</p>
			<p><strong>This link will expire in 1 hour.</strong></p>
			<p>If you didn't request a password reset, you can safely ignore this email.</p>
{{end}}`))

	resetText = texttemplate.Must(texttemplate.New("reset").Parse(`Hi {{.Name}},

We received a request to reset the password for your SkillSprint account.

Reset it here:
{{.Link}}

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email.
`))

	welcomeHTML = htmltemplate.Must(htmltemplate.Must(htmltemplate.New("welcome").Parse(emailLayout)).Parse(`{{define "body"}}
			<p>Hi {{.Name}},</p>
			<p>Welcome to SkillSprint. Pick a 30-day sprint, do one small task a day, and watch your streak grow.</p>
			<p style="text-align: center;"><a href="{{.Link}}" class="button">Browse sprints</a></p>
{{end}}`))

	welcomeText = texttemplate.Must(texttemplate.New("welcome").Parse(`Hi {{.Name}},

Welcome to SkillSprint. Pick a 30-day sprint, do one small task a day, and watch your streak grow.

Browse sprints: {{.Link}}
`))

	intakeText = texttemplate.Must(texttemplate.New("intake").Parse(`{{.Kind}} #{{.ID}}
From: {{.From}}
{{range .Fields}}{{.Label}}: {{.Value}}
{{end}}
{{.Body}}
`))
)

type emailData struct {
	Heading string
	Name    string
	Link    string
}

type intakeField struct {
	Label string
	Value string
}

type intakeData struct {
	Kind   string
	ID     int64
	From   string
	Fields []intakeField
	Body   string
}

func render(html *htmltemplate.Template, text *texttemplate.Template, data interface{}) (string, string, error) {
	var hb, tb bytes.Buffer
	if html != nil {
		if err := html.Execute(&hb, data); err != nil {
			return "", "", fmt.Errorf("failed to render html body: %w", err)
		}
	}
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	return hb.String(), tb.String(), nil
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): password reset to %s", toEmail)
		return nil
	}

	data := emailData{
		Heading: "Password Reset Request",
		Name:    toName,
		Link:    fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, resetToken),
	}
	if s.debug {
		log.Printf("[DEBUG] Reset link generated: %s", data.Link)
	}

	htmlBody, textBody, err := render(resetHTML, resetText, data)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, toEmail, "Reset your SkillSprint password", htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	data := emailData{Heading: "Welcome to SkillSprint!", Name: toName, Link: s.appBaseURL + "/challenges"}
	htmlBody, textBody, err := render(welcomeHTML, welcomeText, data)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, toEmail, "Welcome to SkillSprint!", htmlBody, textBody)
}

// SendContactNotification forwards a contact message to the support inbox
func (s *EmailService) SendContactNotification(ctx context.Context, m *models.ContactMessage) error {
	if !s.enabled || s.supportEmail == "" {
		return nil
	}
	data := intakeData{
		Kind:   "Contact message",
		ID:     m.ID,
		From:   fmt.Sprintf("%s <%s>", m.Name, m.Email),
		Fields: []intakeField{{Label: "Subject", Value: m.Subject}},
		Body:   m.Message,
	}
	_, textBody, err := render(nil, intakeText, data)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, s.supportEmail, "[SkillSprint] Contact: "+m.Subject, "", textBody)
}

// SendProblemReportNotification forwards a problem report to the support inbox
func (s *EmailService) SendProblemReportNotification(ctx context.Context, p *models.ProblemReport) error {
	if !s.enabled || s.supportEmail == "" {
		return nil
	}
	from := p.Email
	if from == "" {
		from = "anonymous"
	}
	data := intakeData{
		Kind: "Problem report",
		ID:   p.ID,
		From: from,
		Fields: []intakeField{
			{Label: "Category", Value: p.Category},
			{Label: "Page", Value: p.PageURL},
			{Label: "User agent", Value: p.UserAgent},
		},
		Body: p.Description,
	}
	_, textBody, err := render(nil, intakeText, data)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, s.supportEmail, "[SkillSprint] Problem report: "+p.Category, "", textBody)
}

// sendEmail sends an email using Amazon SES. An empty htmlBody sends text only.
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
	}
	if htmlBody != "" {
		body.Html = &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}

	if s.debug {
		log.Printf("[DEBUG] Calling SES SendEmail: from=%s to=%s subject=%q", fromAddress, toEmail, subject)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
	}
	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
