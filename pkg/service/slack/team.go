package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
	slackmodel "github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/utils/safe"
)

// teamInfoResponse is team.info as sent by Slack. slack-go's TeamInfo drops
// the enterprise fields and the granted scopes header, so team.info is
// decoded here.
type teamInfoResponse struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error"`
	ResponseMetadata struct {
		Messages []string `json:"messages"`
	} `json:"response_metadata"`
	Team struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Domain       string `json:"domain"`
		EnterpriseID string `json:"enterprise_id"`
		Icon         struct {
			Image132     string `json:"image_132"`
			ImageDefault bool   `json:"image_default"`
		} `json:"icon"`
	} `json:"team"`
}

// GetTeamInfo calls team.info for teamID
func (c *Client) GetTeamInfo(ctx context.Context, token model.Secret, teamID string) (*slackmodel.TeamInfo, error) {
	info, _, err := c.teamInfo(ctx, token, teamID)
	return info, err
}

// GetTeamInfoWithScopes calls team.info for the token's own team
func (c *Client) GetTeamInfoWithScopes(ctx context.Context, token model.Secret) (*slackmodel.TeamInfo, error) {
	info, header, err := c.teamInfo(ctx, token, "")
	if err != nil {
		return nil, err
	}
	info.Scopes = model.ParseScopes(header.Get("X-OAuth-Scopes"))
	return info, nil
}

func (c *Client) teamInfo(ctx context.Context, token model.Secret, teamID string) (*slackmodel.TeamInfo, http.Header, error) {
	form := url.Values{}
	if teamID != "" {
		form.Set("team", teamID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"team.info", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to build team.info request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token.Reveal())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to call team.info", goerr.V("team_id", teamID))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, nil, goerr.New("unexpected status from team.info",
			goerr.V("status", resp.StatusCode),
			goerr.V("team_id", teamID))
	}

	var body teamInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to decode team.info response")
	}
	if !body.OK {
		apiErr := &slackmodel.APIError{
			Method:   "team.info",
			Code:     body.Error,
			Messages: body.ResponseMetadata.Messages,
		}
		return nil, nil, goerr.Wrap(apiErr, "slack api call failed", goerr.V("team_id", teamID))
	}

	info := &slackmodel.TeamInfo{
		ID:           body.Team.ID,
		Name:         body.Team.Name,
		Domain:       body.Team.Domain,
		EnterpriseID: body.Team.EnterpriseID,
	}
	if !body.Team.Icon.ImageDefault {
		info.Icon = body.Team.Icon.Image132
	}
	return info, resp.Header, nil
}
