package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const xAPIBase = "https://api.x.com/2"

// XClient is a thin X API v2 client over the OAuth handler. Posts target
// the configured community; replies never carry community_id because they
// inherit the parent tweet's context.
type XClient struct {
	oauth       *OAuthHandler
	communityID string
	httpClient  *http.Client

	meID       string
	meUsername string
}

// Mention is one tweet that tagged the bot.
type Mention struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorUsername string
	AuthorName     string
	Source         string // "mentions_timeline" or "search_api"
}

func NewXClient(oauth *OAuthHandler, communityID string) *XClient {
	return &XClient{
		oauth:       oauth,
		communityID: communityID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// IsConfigured reports whether posting is possible right now.
func (x *XClient) IsConfigured() bool {
	return x.oauth != nil && x.oauth.IsAuthenticated()
}

func (x *XClient) doJSON(method, path string, query url.Values, body interface{}, out interface{}) error {
	token, err := x.oauth.GetAccessToken()
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}

	u := xAPIBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("x api %s %s: status %d, body: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("x api %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// Me returns the authenticated account's id and username, cached after the
// first lookup.
func (x *XClient) Me() (string, string, error) {
	if x.meID != "" {
		return x.meID, x.meUsername, nil
	}

	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := x.doJSON(http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return "", "", err
	}
	x.meID = out.Data.ID
	x.meUsername = out.Data.Username
	return x.meID, x.meUsername, nil
}

// PostToCommunity publishes a tweet, targeting the configured community
// when one is set. Returns the new tweet id.
func (x *XClient) PostToCommunity(text string) (string, error) {
	body := map[string]interface{}{"text": text}
	if x.communityID != "" {
		body["community_id"] = x.communityID
		log.Infof("Posting to X Community: %s", x.communityID)
	}
	log.Infof("Attempting to post tweet: %.100s...", text)

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := x.doJSON(http.MethodPost, "/tweets", nil, body, &out); err != nil {
		return "", fmt.Errorf("failed to post to X: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("failed to post: no tweet ID in response")
	}

	log.Infof("✅ Posted to X/Twitter: %s", out.Data.ID)
	return out.Data.ID, nil
}

// ReplyToTweet replies to tweetID. community_id is deliberately absent:
// the API rejects it on replies.
func (x *XClient) ReplyToTweet(tweetID, text string) (string, error) {
	body := map[string]interface{}{
		"text": text,
		"reply": map[string]string{
			"in_reply_to_tweet_id": tweetID,
		},
	}
	log.Infof("Replying to tweet %s", tweetID)

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := x.doJSON(http.MethodPost, "/tweets", nil, body, &out); err != nil {
		return "", fmt.Errorf("failed to post reply: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("failed to post reply: no tweet ID in response")
	}

	log.Infof("✅ Posted reply: %s", out.Data.ID)
	return out.Data.ID, nil
}

type tweetPage struct {
	Data []struct {
		ID             string `json:"id"`
		Text           string `json:"text"`
		AuthorID       string `json:"author_id"`
		ConversationID string `json:"conversation_id"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"users"`
	} `json:"includes"`
}

func (p *tweetPage) userLookup() map[string][2]string {
	users := make(map[string][2]string, len(p.Includes.Users))
	for _, u := range p.Includes.Users {
		users[u.ID] = [2]string{u.Username, u.Name}
	}
	return users
}

// FetchMentions collects new mentions of the bot since sinceID. The
// mentions timeline misses tweets posted inside a community, so when a
// community is configured a recent-search for @handle fills the gap.
// Results are deduplicated by tweet id.
func (x *XClient) FetchMentions(sinceID string) ([]Mention, error) {
	log.Info("🔍 Checking for new mentions...")

	userID, username, err := x.Me()
	if err != nil {
		return nil, fmt.Errorf("lookup authenticated user: %w", err)
	}

	var all []Mention
	seen := map[string]bool{}

	params := url.Values{}
	params.Set("max_results", "10")
	params.Set("tweet.fields", "author_id,created_at,conversation_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,name")
	if sinceID != "" {
		params.Set("since_id", sinceID)
		log.Infof("📍 Using since_id: %s", sinceID)
	}

	var page tweetPage
	if err := x.doJSON(http.MethodGet, "/users/"+userID+"/mentions", params, nil, &page); err != nil {
		log.Warnf("Mentions timeline failed: %v", err)
	} else {
		users := page.userLookup()
		for _, t := range page.Data {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			m := Mention{ID: t.ID, Text: t.Text, AuthorID: t.AuthorID, Source: "mentions_timeline"}
			if u, ok := users[t.AuthorID]; ok {
				m.AuthorUsername, m.AuthorName = u[0], u[1]
			}
			all = append(all, m)
		}
		if len(page.Data) > 0 {
			log.Infof("📬 Found %d new mentions from timeline", len(page.Data))
		}
	}

	if x.communityID != "" {
		searchParams := url.Values{}
		searchParams.Set("query", "@"+strings.ToLower(username))
		searchParams.Set("max_results", "10")
		searchParams.Set("tweet.fields", "author_id,created_at,conversation_id")
		searchParams.Set("expansions", "author_id")
		searchParams.Set("user.fields", "username,name")

		var searchPage tweetPage
		if err := x.doJSON(http.MethodGet, "/tweets/search/recent", searchParams, nil, &searchPage); err != nil {
			log.Warnf("Search API for community mentions failed: %v", err)
		} else {
			users := searchPage.userLookup()
			fromSearch := 0
			for _, t := range searchPage.Data {
				if seen[t.ID] {
					continue
				}
				seen[t.ID] = true
				m := Mention{ID: t.ID, Text: t.Text, AuthorID: t.AuthorID, Source: "search_api"}
				if u, ok := users[t.AuthorID]; ok {
					m.AuthorUsername, m.AuthorName = u[0], u[1]
				}
				all = append(all, m)
				fromSearch++
			}
			if fromSearch > 0 {
				log.Infof("📬 Found %d additional mentions from search API (community)", fromSearch)
			}
		}
	}

	if len(all) > 0 {
		log.Infof("📬 Total: %d new mentions found", len(all))
	} else {
		log.Info("📭 No new mentions found")
	}
	return all, nil
}

// GetTweet fetches a single tweet with its author for the manual /reply
// command.
func (x *XClient) GetTweet(tweetID string) (*Mention, error) {
	params := url.Values{}
	params.Set("tweet.fields", "author_id,created_at")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,name")

	var out struct {
		Data struct {
			ID       string `json:"id"`
			Text     string `json:"text"`
			AuthorID string `json:"author_id"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID       string `json:"id"`
				Username string `json:"username"`
				Name     string `json:"name"`
			} `json:"users"`
		} `json:"includes"`
	}
	if err := x.doJSON(http.MethodGet, "/tweets/"+tweetID, params, nil, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("tweet %s not found", tweetID)
	}

	m := &Mention{ID: out.Data.ID, Text: out.Data.Text, AuthorID: out.Data.AuthorID}
	for _, u := range out.Includes.Users {
		if u.ID == out.Data.AuthorID {
			m.AuthorUsername, m.AuthorName = u.Username, u.Name
		}
	}
	return m, nil
}

// truncateTweet enforces the 280-character post limit.
func truncateTweet(s string) string {
	runes := []rune(s)
	if len(runes) <= 280 {
		return s
	}
	return string(runes[:277]) + "..."
}
