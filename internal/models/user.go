package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Roles
const (
	RoleUnset      = ""
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// Skill list limits enforced before anything is submitted on-chain.
const (
	MaxSkills      = 5
	MaxSkillLength = 30
)

// User is one profile row per wallet address. Balances are kept in
// microcredits (1 ALEO = 1_000_000 microcredits) and are mirrored running
// totals, not re-derived from chain state.
type User struct {
	Address                       string          `json:"address"`
	Role                          string          `json:"role"`
	ClientRating                  decimal.Decimal `json:"client_rating"`
	FreelancerRating              decimal.Decimal `json:"freelancer_rating"`
	EscrowBalance                 int64           `json:"escrow_balance"`
	EarnedBalance                 int64           `json:"earned_balance"`
	CompletedProjectsAsClient     int             `json:"completed_projects_as_client"`
	CompletedProjectsAsFreelancer int             `json:"completed_projects_as_freelancer"`
	Skills                        []string        `json:"skills,omitempty"`
	CreatedAt                     time.Time       `json:"created_at"`
	UpdatedAt                     time.Time       `json:"updated_at"`
}

func IsValidRole(role string) bool {
	return role == RoleClient || role == RoleFreelancer
}

// ValidateSkills checks a freelancer skill list: 1..5 entries, each
// non-empty, at most 30 characters, no duplicates.
func ValidateSkills(skills []string) error {
	if len(skills) == 0 {
		return fmt.Errorf("at least one skill is required")
	}
	if len(skills) > MaxSkills {
		return fmt.Errorf("at most %d skills are allowed", MaxSkills)
	}
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return fmt.Errorf("skill must not be empty")
		}
		if len(trimmed) > MaxSkillLength {
			return fmt.Errorf("skill %q exceeds %d characters", trimmed, MaxSkillLength)
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate skill %q", trimmed)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// CanAddSkill validates adding a single skill to an existing list.
func CanAddSkill(existing []string, skill string) error {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return fmt.Errorf("skill must not be empty")
	}
	if len(skill) > MaxSkillLength {
		return fmt.Errorf("skill %q exceeds %d characters", skill, MaxSkillLength)
	}
	if len(existing) >= MaxSkills {
		return fmt.Errorf("at most %d skills are allowed", MaxSkills)
	}
	for _, s := range existing {
		if strings.EqualFold(s, skill) {
			return fmt.Errorf("duplicate skill %q", skill)
		}
	}
	return nil
}
