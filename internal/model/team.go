package model

import "time"

// MembershipRole is a member's role within a team.
type MembershipRole string

const (
	RoleOwner  MembershipRole = "OWNER"
	RoleAdmin  MembershipRole = "ADMIN"
	RoleMember MembershipRole = "MEMBER"
)

// TeamMember is a (team, user) membership. Unique per pair.
type TeamMember struct {
	TeamID   string         `json:"teamId"`
	UserID   string         `json:"userId"`
	Role     MembershipRole `json:"role"`
	JoinedAt time.Time      `json:"joinedAt"`
	User     UserSummary    `json:"user"`
}

// Team is a group of users sharing tasks and a chat channel. The full
// member list is a relationship fetched separately; Members here is
// whatever summary the backend chose to embed.
type Team struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	InviteCode  string       `json:"inviteCode"`
	CreatedByID string       `json:"createdById"`
	CreatedBy   UserSummary  `json:"createdBy"`
	Members     []TeamMember `json:"members,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CreateTeamInput holds the fields for POST /teams.
type CreateTeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// JoinTeamInput identifies the team to join, by id or invite code.
type JoinTeamInput struct {
	TeamID     string `json:"teamId,omitempty"`
	InviteCode string `json:"inviteCode,omitempty"`
}
