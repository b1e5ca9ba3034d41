// Package provision implements idempotent first-organization setup for a
// newly signed-up user.
package provision

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	// DefaultOrgName is used when the caller does not supply a name.
	DefaultOrgName = "My Business"
	// DefaultBranchName is the name of the branch created on first provision.
	DefaultBranchName = "Main Branch"
	// DefaultPlanID is the plan every new organization starts on.
	DefaultPlanID = "free"
)

type Service interface {
	// ProvisionFirstOrg ensures the user has a primary organization with an
	// owner membership, an active subscription and at least one branch.
	// Calling it again returns the same organization.
	ProvisionFirstOrg(ctx context.Context, userID snowflake.ID, orgName string) (*Result, error)
}

type Result struct {
	OrgID    snowflake.ID `json:"org_id"`
	BranchID snowflake.ID `json:"branch_id"`
	Created  bool         `json:"created"`
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMissingPlan     = errors.New("default_plan_missing")
)
