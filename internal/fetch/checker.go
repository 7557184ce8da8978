package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// maxReleaseBody bounds the release metadata read into memory.
const maxReleaseBody = 4 << 20

// LatestTag returns the tag_name of the latest release of repo ("owner/name").
// A release without a string tag yields "".
func (c *Client) LatestTag(ctx context.Context, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBaseURL, repo)

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return "", err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReleaseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("failed to decode response from %s", url)
	}

	tag := gjson.GetBytes(body, "tag_name")
	c.logger.Debug().Str("repo", repo).Str("tag", tag.String()).Msg("latest release")
	if tag.Type != gjson.String {
		return "", nil
	}
	return tag.String(), nil
}
