package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"skillsprint/internal/models"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceDisabled(t *testing.T) {
	svc, err := NewEmailService("us-east-1", "", "", "http://localhost:8080", "", false)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	if svc.IsEnabled() {
		t.Fatal("service without a from address should be disabled")
	}
	if err := svc.SendPasswordResetEmail(context.Background(), "a@example.com", "A", "tok"); err != nil {
		t.Errorf("disabled send error = %v", err)
	}
}

func TestSendPasswordResetEmail(t *testing.T) {
	client := &fakeSES{}
	svc := newEmailServiceWithClient(client, "noreply@example.com", "SkillSprint", "https://skillsprint.test", "help@example.com", false)

	if err := svc.SendPasswordResetEmail(context.Background(), "ada@example.com", "Ada", "abc123"); err != nil {
		t.Fatalf("SendPasswordResetEmail() error = %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("sent %d emails, want 1", len(client.inputs))
	}
	in := client.inputs[0]
	if got := aws.ToString(in.FromEmailAddress); got != "SkillSprint <noreply@example.com>" {
		t.Errorf("from = %q", got)
	}
	if in.Destination.ToAddresses[0] != "ada@example.com" {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}
	body := in.Content.Simple.Body
	link := "https://skillsprint.test/reset-password?token=abc123"
	if body.Html == nil || !strings.Contains(aws.ToString(body.Html.Data), link) {
		t.Error("html body is missing the reset link")
	}
	if !strings.Contains(aws.ToString(body.Text.Data), link) {
		t.Error("text body is missing the reset link")
	}
}

func TestIntakeNotificationsGoToSupport(t *testing.T) {
	client := &fakeSES{}
	svc := newEmailServiceWithClient(client, "noreply@example.com", "", "https://skillsprint.test", "help@example.com", false)

	err := svc.SendProblemReportNotification(context.Background(), &models.ProblemReport{
		ID: 4, Category: "bug", Description: "The checkbox <b>flickers</b>", PageURL: "/challenge/1",
	})
	if err != nil {
		t.Fatalf("SendProblemReportNotification() error = %v", err)
	}
	in := client.inputs[0]
	if in.Destination.ToAddresses[0] != "help@example.com" {
		t.Errorf("to = %v, want support address", in.Destination.ToAddresses)
	}
	if in.Content.Simple.Body.Html != nil {
		t.Error("notifications should be text only")
	}
	text := aws.ToString(in.Content.Simple.Body.Text.Data)
	if !strings.Contains(text, "anonymous") || !strings.Contains(text, "<b>flickers</b>") {
		t.Errorf("unexpected text body:\n%s", text)
	}
}

func TestSendEmailError(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	svc := newEmailServiceWithClient(client, "noreply@example.com", "", "https://skillsprint.test", "", false)

	if err := svc.SendWelcomeEmail(context.Background(), "a@example.com", "A"); err == nil {
		t.Error("expected an error from a failing client")
	}
}
