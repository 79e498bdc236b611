package llm

import (
	"cmp"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider routes chat completions through OpenRouter. Model IDs
// are "vendor/model" and go out unchanged.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errMissingKey("openrouter")
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	conf.BaseURL = cmp.Or(cfg.BaseURL, defaultOpenRouterBaseURL)
	conf.HTTPClient = &http.Client{Transport: titleTransport{base: http.DefaultTransport}}
	return &OpenRouterProvider{newChatCompletions(conf, cfg.Model)}, nil
}

// titleTransport sets the header OpenRouter uses to attribute requests to
// an app on its dashboard.
type titleTransport struct {
	base http.RoundTripper
}

func (t titleTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Title", "quizdrill")
	return t.base.RoundTrip(r)
}
