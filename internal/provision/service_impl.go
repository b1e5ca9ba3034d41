package provision

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	branchdomain "github.com/smallbiznis/warung/internal/branch/domain"
	orgdomain "github.com/smallbiznis/warung/internal/organization/domain"
	"github.com/smallbiznis/warung/internal/organization/event"
	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/warung/internal/subscription/domain"
	"github.com/smallbiznis/warung/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db         *gorm.DB
	orgRepo    orgdomain.Repository
	subRepo    subscriptiondomain.Repository
	branchRepo branchdomain.Repository
	planRepo   plandomain.Repository
	genID      *snowflake.Node
	publisher  event.EventPublisher
	log        *zap.Logger
}

func NewService(
	dbConn *gorm.DB,
	orgRepo orgdomain.Repository,
	subRepo subscriptiondomain.Repository,
	branchRepo branchdomain.Repository,
	planRepo plandomain.Repository,
	genID *snowflake.Node,
	publisher event.EventPublisher,
	log *zap.Logger,
) Service {
	return &service{
		db:         dbConn,
		orgRepo:    orgRepo,
		subRepo:    subRepo,
		branchRepo: branchRepo,
		planRepo:   planRepo,
		genID:      genID,
		publisher:  publisher,
		log:        log.Named("provision.service"),
	}
}

func (s *service) ProvisionFirstOrg(ctx context.Context, userID snowflake.ID, orgName string) (*Result, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	result, err := s.provision(ctx, userID, orgName)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Lost a same-user race on the primary membership index. The whole
		// transaction rolled back; retry once and adopt the winner's rows.
		s.log.Info("provision retry after duplicate key",
			zap.String("user_id", userID.String()),
		)
		result, err = s.provision(ctx, userID, orgName)
	}
	if err != nil {
		return nil, err
	}

	if result.Created {
		s.emitProvisioned(ctx, result.OrgID, userID)
	}
	return result, nil
}

func (s *service) provision(ctx context.Context, userID snowflake.ID, orgName string) (*Result, error) {
	var result Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orgRepo := s.orgRepo.WithTx(tx)
		subRepo := s.subRepo.WithTx(tx)
		branchRepo := s.branchRepo.WithTx(tx)
		planRepo := s.planRepo.WithTx(tx)

		// Any membership counts: a user invited into someone else's
		// organization already has a first org and must not get another.
		existing, err := orgRepo.FirstMembershipByUser(ctx, userID)
		if err != nil {
			return err
		}

		if existing != nil {
			result.OrgID = existing.OrgID
			result.Created = false
			branchID, err := s.ensureBranch(ctx, branchRepo, existing.OrgID)
			if err != nil {
				return err
			}
			result.BranchID = branchID
			return nil
		}

		now := time.Now().UTC()
		name := strings.TrimSpace(orgName)
		if name == "" {
			name = DefaultOrgName
		}

		orgID := s.genID.Generate()
		org := orgdomain.Organization{
			ID:        orgID,
			Name:      name,
			Slug:      slug.Make(name) + "-" + orgID.String(),
			CreatedAt: now,
		}
		if err := orgRepo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := orgdomain.Membership{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			UserID:    userID,
			Role:      orgdomain.RoleOwner,
			IsPrimary: true,
			CreatedAt: now,
		}
		if err := orgRepo.AddMembership(ctx, member); err != nil {
			return err
		}

		if _, err := planRepo.Get(ctx, DefaultPlanID); err != nil {
			if errors.Is(err, plandomain.ErrNotFound) {
				return ErrMissingPlan
			}
			return err
		}

		active, err := subRepo.ActiveByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		if active == nil {
			if err := subRepo.Insert(ctx, subscriptiondomain.Subscription{
				ID:        s.genID.Generate(),
				OrgID:     orgID,
				PlanID:    DefaultPlanID,
				Status:    subscriptiondomain.SubscriptionStatusActive,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		branchID, err := s.ensureBranch(ctx, branchRepo, orgID)
		if err != nil {
			return err
		}

		result.OrgID = orgID
		result.BranchID = branchID
		result.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ensureBranch backfills a default branch for organizations that have none.
func (s *service) ensureBranch(ctx context.Context, repo branchdomain.Repository, orgID snowflake.ID) (snowflake.ID, error) {
	branches, err := repo.ListByOrg(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if len(branches) > 0 {
		return branches[0].ID, nil
	}

	branch := branchdomain.Branch{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      DefaultBranchName,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Insert(ctx, branch); err != nil {
		return 0, err
	}
	return branch.ID, nil
}

func (s *service) emitProvisioned(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"organization_id": orgID.String(),
		"owner_user_id":   userID.String(),
	})
	if err != nil {
		s.log.Warn("failed to marshal provisioned payload", zap.Error(err))
		return
	}

	if err := s.publisher.Publish(ctx, event.OrganizationProvisionedTopic, payload); err != nil {
		s.log.Warn("failed to publish organization.provisioned", zap.Error(err))
	}
}
