// Package search enriches prompts that ask about the world with a DuckDuckGo
// instant-answer lookup.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultURL = "https://api.duckduckgo.com/"

// ErrAugmentation marks a failed lookup. It never reaches the user.
var ErrAugmentation = errors.New("augmentation")

// Keywords trigger a lookup when any of them occurs in the prompt.
var Keywords = []string{
	"what is", "who is", "when", "where", "how", "latest", "current",
	"news", "weather", "time", "date", "price", "stock", "market",
	"search", "find", "look up", "tell me about",
}

const maxRelated = 3

type Augmenter struct {
	URL        string
	HTTPClient *http.Client
}

func NewAugmenter(baseURL string, client *http.Client) *Augmenter {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Augmenter{URL: baseURL, HTTPClient: client}
}

// ShouldAugment is a case-insensitive substring test against Keywords.
func (a *Augmenter) ShouldAugment(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

type relatedTopic struct {
	Text string `json:"Text"`
}

type instantAnswer struct {
	Abstract      string         `json:"Abstract"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

// Results is the part of an instant answer used for prompting.
type Results struct {
	Abstract string
	Related  []string
}

// Lookup performs one GET against the instant-answer API.
func (a *Augmenter) Lookup(ctx context.Context, query string) (Results, error) {
	u, err := url.Parse(a.URL)
	if err != nil {
		return Results{}, fmt.Errorf("%w: bad url: %v", ErrAugmentation, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Results{}, fmt.Errorf("%w: %v", ErrAugmentation, err)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return Results{}, fmt.Errorf("%w: %v", ErrAugmentation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Results{}, fmt.Errorf("%w: status=%d", ErrAugmentation, resp.StatusCode)
	}

	var ia instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ia); err != nil {
		return Results{}, fmt.Errorf("%w: decode: %v", ErrAugmentation, err)
	}

	res := Results{Abstract: ia.Abstract}
	for i, t := range ia.RelatedTopics {
		if i == maxRelated {
			break
		}
		// category groups have no Text of their own
		if t.Text != "" {
			res.Related = append(res.Related, t.Text)
		}
	}
	return res, nil
}

// Augment prefixes prompt with lookup context.
func (a *Augmenter) Augment(ctx context.Context, prompt string) (string, error) {
	res, err := a.Lookup(ctx, prompt)
	if err != nil {
		return "", err
	}
	return Compose(res, prompt), nil
}

func Compose(res Results, prompt string) string {
	var b strings.Builder
	b.WriteString("Based on the following web search results:\n")
	if res.Abstract != "" {
		fmt.Fprintf(&b, "Main information: %s\n", res.Abstract)
	}
	if len(res.Related) > 0 {
		fmt.Fprintf(&b, "Related information: %s\n", strings.Join(res.Related, " "))
	}
	fmt.Fprintf(&b, "\nNow, please answer this question: %s", prompt)
	return b.String()
}
