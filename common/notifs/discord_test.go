package notifs

import (
	"strings"
	"testing"

	"github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/common/loggers"
)

func TestWebhookCredentials(t *testing.T) {
	tests := map[string]struct {
		url       string
		id        uint64
		token     string
		expectErr bool
	}{
		"empty":         {url: ""},
		"valid":         {url: "https://discord.com/api/webhooks/1089253472235532328/abcDEF-123", id: 1089253472235532328, token: "abcDEF-123"},
		"trailing path": {url: "https://discord.com/api/webhooks/1089253472235532328/abcDEF-123/", id: 1089253472235532328, token: "abcDEF-123"},
		"bad id":        {url: "https://discord.com/api/webhooks/notanid/abc", expectErr: true},
		"no token":      {url: "https://discord.com/", expectErr: true},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			id, token, err := webhookCredentials(test.url)
			if test.expectErr {
				if err == nil {
					t.Errorf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if uint64(id) != test.id || token != test.token {
				t.Errorf("got %d/%s, expected %d/%s", id, token, test.id, test.token)
			}
		})
	}
}

func TestNewDiscordHandler(t *testing.T) {
	t.Setenv(common.Env_DiscordAlertWebhook, "")
	t.Setenv(common.Env_DiscordInfoWebhook, "")
	t.Setenv(common.Env_DiscordTestWebhook, "")
	handler, err := NewDiscordHandler(loggers.NewTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handler.Enabled() {
		t.Errorf("handler without webhooks should be disabled")
	}
	// Nothing configured, nothing sent
	if err = handler.SendAlert("title", "desc", "content"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	t.Setenv(common.Env_DiscordAlertWebhook, "https://discord.com/api/webhooks/bad/token")
	if _, err = NewDiscordHandler(loggers.NewTestLogger()); err == nil {
		t.Errorf("expected an error for a malformed webhook")
	}
}

func TestFormatContent(t *testing.T) {
	if formatted := formatContent("boom"); formatted != "```\nboom\n```" {
		t.Errorf("unexpected content %q", formatted)
	}
	long := formatContent(strings.Repeat("x", 5000))
	if len(long) > discordContentLimit {
		t.Errorf("content too long: %d", len(long))
	}
	if !strings.HasSuffix(long, "...\n```") {
		t.Errorf("truncated content should end with an ellipsis")
	}
}
