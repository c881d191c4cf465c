package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
	"flow-api/services/agent"
)

const agentBodyLimit = 64 << 10

const agentFallbackSpeech = "Uh oh, something weird happened"

const propFBSenderID = "fb_id"

// apiaiRequest handles webhook calls from the conversational platforms. The
// response always carries speech; unauthenticated or unparseable requests
// get the fallback line rather than an error status.
func apiaiRequest(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		speech := ""
		var data map[string]any
		if c.Request().Header.Get("Auth-Key") == d.AgentAuthKey && d.AgentAuthKey != "" {
			body, err := io.ReadAll(io.LimitReader(c.Request().Body, agentBodyLimit))
			if err == nil {
				if webhook, err := agent.ParseWebhook(body); err == nil {
					u := d.agentUser(c, webhook)
					d.Log.Debugf("agent request %s action=%s", webhook.ID, webhook.Action)
					ca := agent.New(d.Store, u, webhook.Kind, d.Log)
					speech, data = ca.RespondToAction(ctx, webhook.Action, webhook.Parameters)
				} else {
					d.Log.Warnf("agent webhook parse: %v", err)
				}
			}
		}
		if speech == "" {
			speech = agentFallbackSpeech
		}
		if data == nil {
			data = map[string]any{}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"source":      "Flow",
			"speech":      speech,
			"displayText": speech,
			"data":        data,
			"contextOut":  []any{},
		})
	}
}

// agentUser resolves the webhook's identity material to a local user: an
// encrypted access token for the assistant, a linked sender id for
// messenger.
func (d Deps) agentUser(c echo.Context, webhook *agent.Webhook) *domain.User {
	ctx := c.Request().Context()
	if webhook.AccessToken != "" && d.Tokens != nil {
		userID, _, err := d.Tokens.Decode(webhook.AccessToken)
		if err != nil {
			d.Log.Warnf("agent access token: %v", err)
			return nil
		}
		u, err := d.Store.GetUser(ctx, userID)
		if err != nil {
			d.Log.Warnf("agent user lookup: %v", err)
			return nil
		}
		return u
	}
	if webhook.SenderID != "" {
		users, err := d.Store.UsersWithIntegration(ctx, propFBSenderID)
		if err != nil {
			d.Log.Warnf("agent sender lookup: %v", err)
			return nil
		}
		for _, u := range users {
			if u.IntegrationProp(propFBSenderID, "") == webhook.SenderID {
				return u
			}
		}
	}
	return nil
}

// fbookRequest serves the messenger webhook endpoint. The GET leg answers
// the platform's subscription challenge; the POST leg acknowledges message
// delivery.
func fbookRequest(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		verifyToken := c.QueryParam("hub.verify_token")
		challenge := c.QueryParam("hub.challenge")
		if verifyToken != "" && verifyToken == d.FBVerifyToken && challenge != "" {
			return c.String(http.StatusOK, challenge)
		}
		return respond(c, true, "", nil)
	}
}
