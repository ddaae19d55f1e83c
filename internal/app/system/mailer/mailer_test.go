package mailer

import (
	"net/smtp"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSend_LogOnlyWithoutHost(t *testing.T) {
	m := New(Config{}, zap.NewNop())
	called := false
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	if err := m.Send(Email{To: "ace@clan.gg", Subject: "hi"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if called {
		t.Error("expected no SMTP call without a host")
	}
}

func TestSend_InvalidRecipient(t *testing.T) {
	m := New(Config{Host: "smtp.example.com"}, zap.NewNop())
	if err := m.Send(Email{To: "not an address"}); err == nil {
		t.Error("expected error for invalid recipient")
	}
}

func TestSend_BuildsMultipartMessage(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 2525, From: "noreply@clan.gg", FromName: "Clan"}, zap.NewNop())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	email := BuildPasswordResetEmail("ace@clan.gg", ResetEmailData{
		SiteName:  "Clan",
		Username:  "ace",
		ResetLink: "https://clan.gg/reset?token=abc",
		ExpiresIn: "30 minutes",
	})
	if err := m.Send(email); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotAddr != "smtp.example.com:2525" {
		t.Errorf("addr = %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "ace@clan.gg" {
		t.Errorf("to = %v", gotTo)
	}
	for _, want := range []string{"multipart/alternative", "text/plain", "text/html", "Reset your Clan password"} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildPasswordResetEmail_EscapesHTML(t *testing.T) {
	email := BuildPasswordResetEmail("x@clan.gg", ResetEmailData{SiteName: "Clan", Username: "<b>ace</b>", ResetLink: "https://clan.gg/r"})
	if strings.Contains(email.HTMLBody, "<b>ace</b>") {
		t.Error("expected username to be escaped in HTML body")
	}
	if !strings.Contains(email.TextBody, "https://clan.gg/r") {
		t.Error("expected link in text body")
	}
}
