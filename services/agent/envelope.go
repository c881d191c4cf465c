package agent

import "github.com/bytedance/sonic"

// Kind identifies the conversational surface a webhook request came from.
type Kind int

const (
	KindUnknown Kind = iota
	KindGoogleAssistant
	KindFacebookMessenger
)

// Webhook is the parsed agent request: the resolved action, its parameters,
// the source surface, and the identity material carried by that surface.
type Webhook struct {
	ID          string
	Kind        Kind
	Action      string
	Query       string
	Parameters  map[string]any
	AccessToken string
	SenderID    string
}

// Per-source data variants. The envelope declares its origin in
// originalRequest.source; each variant carries user identity differently,
// so each gets its own decode before mapping onto Webhook.
type googleData struct {
	User struct {
		AccessToken string `json:"access_token"`
	} `json:"user"`
}

type facebookData struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
}

type rawEnvelope struct {
	ID     string `json:"id"`
	Result struct {
		Action        string         `json:"action"`
		ResolvedQuery string         `json:"resolvedQuery"`
		Parameters    map[string]any `json:"parameters"`
	} `json:"result"`
	OriginalRequest struct {
		Source string                 `json:"source"`
		Data   sonic.NoCopyRawMessage `json:"data"`
	} `json:"originalRequest"`
}

// ParseWebhook decodes an agent webhook body, dispatching on the declared
// source. Unknown sources still parse; they simply carry no identity.
func ParseWebhook(body []byte) (*Webhook, error) {
	var raw rawEnvelope
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	w := &Webhook{
		ID:         raw.ID,
		Action:     raw.Result.Action,
		Query:      raw.Result.ResolvedQuery,
		Parameters: raw.Result.Parameters,
	}
	switch raw.OriginalRequest.Source {
	case "google":
		w.Kind = KindGoogleAssistant
		if len(raw.OriginalRequest.Data) > 0 {
			var data googleData
			if err := sonic.Unmarshal(raw.OriginalRequest.Data, &data); err != nil {
				return nil, err
			}
			w.AccessToken = data.User.AccessToken
		}
	case "facebook":
		w.Kind = KindFacebookMessenger
		if len(raw.OriginalRequest.Data) > 0 {
			var data facebookData
			if err := sonic.Unmarshal(raw.OriginalRequest.Data, &data); err != nil {
				return nil, err
			}
			w.SenderID = data.Sender.ID
		}
	default:
		w.Kind = KindUnknown
	}
	return w, nil
}
