package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ users.Repository = (*UserRepository)(nil)

const userColumns = `id, name, email, password_hash, role, bio, phone, profile_picture,
       events_created, events_registered, created_at, updated_at`

func (r *UserRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		params.ID, params.Name, params.Email, params.PasswordHash, string(params.Role),
	)
	user, err := scanUser(row)
	if err != nil {
		if isConstraint(err, codeUniqueViolation, constraintUsersEmail) {
			return nil, users.ErrEmailTaken
		}
		return nil, classify(fmt.Errorf("create user: %w", err))
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.one(row, "get user")
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return r.one(row, "get user by email")
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update users.ProfileUpdate) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE users
   SET name            = COALESCE($2, name),
       email           = COALESCE($3, email),
       bio             = COALESCE($4, bio),
       phone           = COALESCE($5, phone),
       profile_picture = COALESCE($6, profile_picture),
       updated_at      = now()
 WHERE id = $1
RETURNING `+userColumns,
		id, update.Name, update.Email, update.Bio, update.Phone, update.ProfilePicture,
	)
	user, err := scanUser(row)
	if err != nil {
		if isConstraint(err, codeUniqueViolation, constraintUsersEmail) {
			return nil, users.ErrEmailTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, classify(fmt.Errorf("update profile: %w", err))
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	tag, err := r.queryer().Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return classify(fmt.Errorf("update password: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role auth.Role) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE users SET role = $2, updated_at = now()
 WHERE id = $1
RETURNING `+userColumns, id, string(role))
	return r.one(row, "update role")
}

func (r *UserRepository) List(ctx context.Context, filter users.ListFilter, page pagination.Page) (users.ListResult, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER () FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		userColumns, clause, len(args)+1, len(args)+2)
	rows, err := r.queryer().Query(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return users.ListResult{}, classify(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()

	result := users.ListResult{Users: []users.User{}}
	for rows.Next() {
		var (
			user users.User
			role string
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.Bio, &user.Phone,
			&user.ProfilePicture, &user.EventsCreated, &user.EventsRegistered, &user.CreatedAt, &user.UpdatedAt,
			&result.Total); err != nil {
			return users.ListResult{}, fmt.Errorf("scan user: %w", err)
		}
		user.Role = auth.Role(role)
		result.Users = append(result.Users, user)
	}
	if err := rows.Err(); err != nil {
		return users.ListResult{}, classify(fmt.Errorf("list users: %w", err))
	}

	// A page past the end carries no window count.
	if len(result.Users) == 0 && page.Offset() > 0 {
		if err := r.queryer().QueryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&result.Total); err != nil {
			return users.ListResult{}, classify(fmt.Errorf("count users: %w", err))
		}
	}
	return result, nil
}

func (r *UserRepository) one(row pgx.Row, op string) (*users.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("%s: %w", op, err))
	}
	return user, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		user users.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.Bio, &user.Phone,
		&user.ProfilePicture, &user.EventsCreated, &user.EventsRegistered, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = auth.Role(role)
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
