package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/models"
	"github.com/aleo-freelance/backend/internal/repositories"
)

// ProfileService serves profile reads and the mirror-side skill list
// mutations. Skills live on-chain only as the registration-time encoded
// array; later edits touch the mirror alone.
type ProfileService struct {
	userRepo *repositories.UserRepo
	log      *zap.Logger
}

func NewProfileService(userRepo *repositories.UserRepo, log *zap.Logger) *ProfileService {
	return &ProfileService{userRepo: userRepo, log: log}
}

func (s *ProfileService) GetProfile(ctx context.Context, address string) (*models.User, error) {
	return s.userRepo.GetByAddress(ctx, address)
}

// ListFreelancers returns the freelancer directory ordered by rating.
func (s *ProfileService) ListFreelancers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.ListFreelancers(ctx, limit, offset)
}

// AddSkill appends one skill, enforcing the count and length caps.
func (s *ProfileService) AddSkill(ctx context.Context, address, skill string) (*models.User, error) {
	skill = strings.TrimSpace(skill)
	user, err := s.userRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", address)
	}
	if user.Role != models.RoleFreelancer {
		return nil, fmt.Errorf("only freelancers have skill lists")
	}
	if err := models.CanAddSkill(user.Skills, skill); err != nil {
		return nil, err
	}

	updated := append(append([]string(nil), user.Skills...), skill)
	if err := s.userRepo.UpdateSkills(ctx, address, updated); err != nil {
		return nil, err
	}
	user.Skills = updated
	return user, nil
}

// RemoveSkill drops one skill by exact match. The last skill cannot be
// removed; a registered freelancer always advertises at least one.
func (s *ProfileService) RemoveSkill(ctx context.Context, address, skill string) (*models.User, error) {
	user, err := s.userRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", address)
	}
	if user.Role != models.RoleFreelancer {
		return nil, fmt.Errorf("only freelancers have skill lists")
	}

	updated := make([]string, 0, len(user.Skills))
	found := false
	for _, s := range user.Skills {
		if s == skill {
			found = true
			continue
		}
		updated = append(updated, s)
	}
	if !found {
		return nil, fmt.Errorf("skill %q not in list", skill)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("cannot remove the last skill")
	}

	if err := s.userRepo.UpdateSkills(ctx, address, updated); err != nil {
		return nil, err
	}
	user.Skills = updated
	return user, nil
}
