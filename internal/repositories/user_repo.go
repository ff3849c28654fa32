package repositories

import (
	"context"
	"errors"

	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/models"
)

var (
	// ErrInsufficientBalance is returned by guarded decrements when the
	// mirrored balance would go negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRoleConflict is returned when an upsert tries to change an already
	// assigned role.
	ErrRoleConflict = errors.New("role already set")
)

type UserRepo struct {
	db db.Querier
}

func NewUserRepo(q db.Querier) *UserRepo {
	return &UserRepo{db: q}
}

const userColumns = `address, role, client_rating, freelancer_rating,
	       escrow_balance, earned_balance,
	       completed_projects_as_client, completed_projects_as_freelancer,
	       skills, created_at, updated_at`

func (r *UserRepo) scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.Address, &u.Role, &u.ClientRating, &u.FreelancerRating,
		&u.EscrowBalance, &u.EarnedBalance,
		&u.CompletedProjectsAsClient, &u.CompletedProjectsAsFreelancer,
		&u.Skills, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertRole registers a role for an address. Re-registration with the same
// role overwrites (idempotent); switching roles is rejected, the role is set
// at most once.
func (r *UserRepo) UpsertRole(ctx context.Context, u *models.User) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (address, role, client_rating, freelancer_rating, skills)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			role = EXCLUDED.role,
			client_rating = EXCLUDED.client_rating,
			freelancer_rating = EXCLUDED.freelancer_rating,
			skills = EXCLUDED.skills,
			updated_at = now()
		WHERE users.role = '' OR users.role = EXCLUDED.role
		RETURNING `+userColumns,
		u.Address, u.Role, u.ClientRating, u.FreelancerRating, u.Skills)

	saved, err := r.scanUser(row)
	if err != nil {
		// The conditional upsert returns no row when the role differs.
		return nil, ErrRoleConflict
	}
	return saved, nil
}

func (r *UserRepo) GetByAddress(ctx context.Context, address string) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE address = $1
	`, address))
}

func (r *UserRepo) ListFreelancers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = $1
		ORDER BY freelancer_rating DESC, created_at ASC
		LIMIT $2 OFFSET $3
	`, models.RoleFreelancer, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// IncrementEscrowBalance adds delta microcredits to the client-side mirrored
// balance. Atomic server-side update, never read-modify-write.
func (r *UserRepo) IncrementEscrowBalance(ctx context.Context, address string, delta int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET escrow_balance = escrow_balance + $1, updated_at = now()
		WHERE address = $2
	`, delta, address)
	return err
}

// DecrementEscrowBalance subtracts amount, guarded so the balance never goes
// negative.
func (r *UserRepo) DecrementEscrowBalance(ctx context.Context, address string, amount int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET escrow_balance = escrow_balance - $1, updated_at = now()
		WHERE address = $2 AND escrow_balance >= $1
	`, amount, address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// IncrementEarnedBalance credits a freelancer's accumulated payouts.
func (r *UserRepo) IncrementEarnedBalance(ctx context.Context, address string, delta int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET earned_balance = earned_balance + $1, updated_at = now()
		WHERE address = $2
	`, delta, address)
	return err
}

// IncrementCompletedProjects bumps both parties' per-role counters when an
// escrow completes.
func (r *UserRepo) IncrementCompletedProjects(ctx context.Context, clientAddr, freelancerAddr string) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE users SET completed_projects_as_client = completed_projects_as_client + 1, updated_at = now()
		WHERE address = $1
	`, clientAddr); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE users SET completed_projects_as_freelancer = completed_projects_as_freelancer + 1, updated_at = now()
		WHERE address = $1
	`, freelancerAddr)
	return err
}

func (r *UserRepo) UpdateSkills(ctx context.Context, address string, skills []string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET skills = $1, updated_at = now() WHERE address = $2
	`, skills, address)
	return err
}
