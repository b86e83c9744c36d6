package notifs

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"

	"github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/models"
)

type DiscordColor int

const (
	DiscordColor_None  = iota
	DiscordColor_Info  = 3447003
	DiscordColor_Ok    = 3581519
	DiscordColor_Alert = 16711712
)

const DiscordPacing = 2 * time.Second

// Discord rejects message content longer than this
const discordContentLimit = 2000

var _ models.Notifier = &DiscordHandler{}

type DiscordHandler struct {
	alertWebhook webhook.Client
	infoWebhook  webhook.Client
	testWebhook  webhook.Client
	logger       models.Logger
}

func NewDiscordHandler(logger models.Logger) (*DiscordHandler, error) {
	if a, err := parseDiscordWebhookUrl(common.Env_DiscordAlertWebhook); err != nil {
		return nil, err
	} else if i, err := parseDiscordWebhookUrl(common.Env_DiscordInfoWebhook); err != nil {
		return nil, err
	} else if t, err := parseDiscordWebhookUrl(common.Env_DiscordTestWebhook); err != nil {
		return nil, err
	} else {
		return &DiscordHandler{a, i, t, logger}, nil
	}
}

func (d DiscordHandler) Enabled() bool {
	return d.alertWebhook != nil || d.infoWebhook != nil || d.testWebhook != nil
}

func parseDiscordWebhookUrl(urlEnv string) (webhook.Client, error) {
	if id, token, err := webhookCredentials(os.Getenv(urlEnv)); err != nil {
		return nil, err
	} else if len(token) > 0 {
		return webhook.New(id, token), nil
	}
	return nil, nil
}

// webhookCredentials extracts the id and token from a "https://discord.com/api/webhooks/<id>/<token>" URL.
func webhookCredentials(webhookUrl string) (snowflake.ID, string, error) {
	if len(webhookUrl) == 0 {
		return 0, "", nil
	}
	parsedUrl, err := url.Parse(webhookUrl)
	if err != nil {
		return 0, "", err
	}
	urlParts := strings.Split(strings.TrimSuffix(parsedUrl.Path, "/"), "/")
	if len(urlParts) < 2 || len(urlParts[len(urlParts)-1]) == 0 {
		return 0, "", errors.New("discord: malformed webhook url")
	}
	if id, err := snowflake.Parse(urlParts[len(urlParts)-2]); err != nil {
		return 0, "", err
	} else {
		return id, urlParts[len(urlParts)-1], nil
	}
}

func (d DiscordHandler) SendAlert(title, desc, content string) error {
	return d.send(d.alertWebhook, title, desc, content, DiscordColor_Alert)
}

func (d DiscordHandler) SendInfo(title, desc, content string) error {
	return d.send(d.infoWebhook, title, desc, content, DiscordColor_Ok)
}

func (d DiscordHandler) send(wh webhook.Client, title, desc, content string, color DiscordColor) error {
	var err error
	if wh != nil {
		err = d.sendNotif(wh, title, desc, content, color)
	}
	// Always duplicate notifications to the test channel, if configured.
	if d.testWebhook != nil {
		if testErr := d.sendNotif(d.testWebhook, title, desc, content, color); err == nil {
			err = testErr
		}
	}
	return err
}

func (d DiscordHandler) sendNotif(wh webhook.Client, title, desc, content string, color DiscordColor) error {
	messageEmbed := discord.Embed{
		Title:       title,
		Description: desc,
		Type:        discord.EmbedTypeRich,
		Color:       int(color),
	}
	_, err := wh.CreateMessage(discord.NewWebhookMessageCreateBuilder().
		SetEmbeds(messageEmbed).
		SetContent(formatContent(content)).
		SetUsername(common.ServiceName).
		Build(),
		rest.WithDelay(DiscordPacing),
	)
	if err != nil {
		d.logger.Errorf("sendNotif: error sending discord notification: %v, %s, %s", err, title, desc)
		return err
	}
	return nil
}

func formatContent(content string) string {
	const fence = "```"
	// Leave room for the code fence
	if maxLen := discordContentLimit - 2*len(fence) - 2; len(content) > maxLen {
		content = content[:maxLen-3] + "..."
	}
	return fence + "\n" + content + "\n" + fence
}
