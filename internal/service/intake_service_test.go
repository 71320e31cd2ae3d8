package service

import (
	"context"
	"testing"

	"skillsprint/internal/repository"
	"skillsprint/internal/testutil"
)

func TestSubmitContact(t *testing.T) {
	db := testutil.NewTestDB(t)
	client := &fakeSES{}
	email := newEmailServiceWithClient(client, "noreply@example.com", "", "https://skillsprint.test", "help@example.com", false)
	svc := NewIntakeService(repository.NewIntakeRepository(db), email)

	m, err := svc.SubmitContact(context.Background(), ContactInput{
		Name:    " Grace ",
		Email:   "Grace@Example.com",
		Subject: "Hello",
		Message: "Love the sprints",
	})
	if err != nil {
		t.Fatalf("SubmitContact() error = %v", err)
	}
	if m.ID == 0 || m.Name != "Grace" || m.Email != "grace@example.com" {
		t.Errorf("SubmitContact() = %+v", m)
	}
	if len(client.inputs) != 1 {
		t.Errorf("sent %d notifications, want 1", len(client.inputs))
	}

	tests := []struct {
		name string
		in   ContactInput
	}{
		{"missing message", ContactInput{Name: "Grace", Email: "g@example.com"}},
		{"bad email", ContactInput{Name: "Grace", Email: "nope", Message: "hi"}},
		{"missing name", ContactInput{Email: "g@example.com", Message: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SubmitContact(context.Background(), tt.in); !isValidation(err) {
				t.Errorf("SubmitContact() error = %v, want validation error", err)
			}
		})
	}

	list, err := svc.ContactMessages(10)
	if err != nil || len(list) != 1 {
		t.Errorf("ContactMessages() = %d, %v", len(list), err)
	}
}

func TestSubmitProblemReport(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewIntakeService(repository.NewIntakeRepository(db), nil)

	p, err := svc.SubmitProblemReport(context.Background(), ProblemInput{
		Category:    "Bug",
		Description: "Checkbox does not stay checked",
		PageURL:     "/challenge/3",
		UserAgent:   "test-agent",
	})
	if err != nil {
		t.Fatalf("SubmitProblemReport() error = %v", err)
	}
	if p.Category != "bug" || p.Status != "open" {
		t.Errorf("SubmitProblemReport() = %+v", p)
	}

	if _, err := svc.SubmitProblemReport(context.Background(), ProblemInput{Category: "weather", Description: "x"}); !isValidation(err) {
		t.Errorf("unknown category error = %v", err)
	}
	if _, err := svc.SubmitProblemReport(context.Background(), ProblemInput{Category: "bug", Email: "bad", Description: "x"}); !isValidation(err) {
		t.Errorf("bad email error = %v", err)
	}

	if err := svc.ResolveProblemReport(p.ID); err != nil {
		t.Fatalf("ResolveProblemReport() error = %v", err)
	}
	open, err := svc.ProblemReports("open", 10)
	if err != nil || len(open) != 0 {
		t.Errorf("open reports = %d, %v", len(open), err)
	}
}
