package api

import (
	"context"
	"fmt"

	"github.com/nhle/taskflow/internal/model"
)

// ListTeams fetches the teams the current user belongs to.
func (c *Client) ListTeams(ctx context.Context) ([]model.Team, error) {
	var resp struct {
		Teams []model.Team `json:"teams"`
	}
	if err := c.get(ctx, "/teams", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// CreateTeam creates a team owned by the current user.
func (c *Client) CreateTeam(ctx context.Context, input model.CreateTeamInput) (model.Team, error) {
	var resp struct {
		Team model.Team `json:"team"`
	}
	if err := c.post(ctx, "/teams", input, &resp); err != nil {
		return model.Team{}, err
	}
	return resp.Team, nil
}

// JoinTeam joins a team by id or invite code.
func (c *Client) JoinTeam(ctx context.Context, input model.JoinTeamInput) (model.Team, error) {
	var resp struct {
		Team model.Team `json:"team"`
	}
	if err := c.post(ctx, "/teams/join", input, &resp); err != nil {
		return model.Team{}, err
	}
	return resp.Team, nil
}

// LeaveTeam removes the current user from a team.
func (c *Client) LeaveTeam(ctx context.Context, teamID string) error {
	return c.post(ctx, fmt.Sprintf("/teams/%s/leave", teamID), nil, nil)
}

// DeleteTeam deletes a team. Only the owner may do this.
func (c *Client) DeleteTeam(ctx context.Context, teamID string) error {
	return c.delete(ctx, fmt.Sprintf("/teams/%s", teamID))
}

// ListTeamMembers fetches the membership list of a team.
func (c *Client) ListTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	var resp struct {
		Members []model.TeamMember `json:"members"`
	}
	if err := c.get(ctx, fmt.Sprintf("/teams/%s/members", teamID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}
