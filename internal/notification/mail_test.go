package notification

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/config"
)

func TestMailClientSend(t *testing.T) {
	var addr string
	var to []string
	var msg []byte
	c := NewMailClient(config.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u", Password: "p", From: "noreply@example.com"})
	c.send = func(a string, _ smtp.Auth, _ string, rcpt []string, m []byte) error {
		addr, to, msg = a, rcpt, m
		return nil
	}

	require.NoError(t, c.Send(context.Background(), "ops@example.com", "Bin fullness\nis 90", "line 1\nline 2"))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, []string{"ops@example.com"}, to)
	assert.Contains(t, string(msg), "Subject: Bin fullness is 90\r\n")
	assert.Contains(t, string(msg), "\r\n\r\nline 1\r\nline 2")
}

func TestMailClientDisabledWithoutHost(t *testing.T) {
	c := NewMailClient(config.SMTPConfig{})
	c.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	assert.NoError(t, c.Send(context.Background(), "ops@example.com", "s", "b"))
}
