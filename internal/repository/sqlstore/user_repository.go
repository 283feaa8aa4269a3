package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auth-template/internal/domain"
	"auth-template/internal/repository"
)

const selectUser = `
SELECT b.id, b.username, b.email, b.full_name, b.phone_number, b.hashed_otp,
	b.password_hash, b.image_path, b.user_type, b.role_id, b.last_login_at,
	b.otp_created_at, b.is_active, b.created_at, b.updated_at,
	u.age, u.gender, u.height, u.weight
FROM base_users b
LEFT JOIN users u ON u.base_user_id = b.id`

type UserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserRepository(db *sql.DB, dialect Dialect) *UserRepository {
	return &UserRepository{db: db, dialect: dialect}
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Init creates base_users and users. The roles table must exist first.
func (r *UserRepository) Init(ctx context.Context) error {
	if err := execAll(ctx, r.db, r.dialect.BaseUsersTable, r.dialect.UsersTable); err != nil {
		return fmt.Errorf("create user tables: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC().Truncate(time.Second)
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.UserType == "" {
		user.UserType = domain.UserTypeUser
	}
	user.IsActive = true

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var roleID sql.NullInt64
	if user.RoleID != nil {
		roleID = sql.NullInt64{Int64: *user.RoleID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO base_users (id, username, email, full_name, phone_number, hashed_otp,
	password_hash, image_path, user_type, role_id, last_login_at, otp_created_at,
	is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		nullString(user.FullName),
		nullString(user.PhoneNumber),
		nullString(user.HashedOTP),
		nullString(user.PasswordHash),
		nullString(user.ImagePath),
		user.UserType,
		roleID,
		nullTime(user.LastLoginAt),
		nullTime(user.OTPCreatedAt),
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if r.dialect.duplicate(err) {
			return fmt.Errorf("insert base user: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("insert base user: %w", err)
	}

	var gender sql.NullString
	if user.Profile.Gender != nil {
		gender = sql.NullString{String: string(*user.Profile.Gender), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO users (base_user_id, age, gender, height, weight)
VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		nullInt(user.Profile.Age),
		gender,
		nullFloat(user.Profile.Height),
		nullFloat(user.Profile.Weight),
	)
	if err != nil {
		return fmt.Errorf("insert user profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE b.id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE b.email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE b.username = ?`, username)
	return scanUser(row)
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM base_users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count username: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) UpdateTokenState(ctx context.Context, id string, state repository.TokenState) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE base_users
SET hashed_otp = ?, otp_created_at = ?, last_login_at = ?, updated_at = ?
WHERE id = ?`,
		nullString(state.HashedOTP),
		nullTime(state.OTPCreatedAt),
		nullTime(state.LastLoginAt),
		time.Now().UTC().Truncate(time.Second),
		id,
	)
	if err != nil {
		return fmt.Errorf("update token state: %w", err)
	}
	return expectRow(res)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update profile: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Truncate(time.Second)}
	if update.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *update.FullName)
	}
	if update.PhoneNumber != nil {
		sets = append(sets, "phone_number = ?")
		args = append(args, *update.PhoneNumber)
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, `UPDATE base_users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update base user: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}

	sets, args = sets[:0], args[:0]
	if update.Age != nil {
		sets = append(sets, "age = ?")
		args = append(args, *update.Age)
	}
	if update.Gender != nil {
		sets = append(sets, "gender = ?")
		args = append(args, string(*update.Gender))
	}
	if update.Height != nil {
		sets = append(sets, "height = ?")
		args = append(args, *update.Height)
	}
	if update.Weight != nil {
		sets = append(sets, "weight = ?")
		args = append(args, *update.Weight)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE base_user_id = ?`, args...); err != nil {
			return fmt.Errorf("update user profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update profile: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE base_users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash,
		time.Now().UTC().Truncate(time.Second),
		id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectRow(res)
}

func (r *UserRepository) UpdateImage(ctx context.Context, id string, imagePath *string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE base_users SET image_path = ?, updated_at = ? WHERE id = ?`,
		nullString(imagePath),
		time.Now().UTC().Truncate(time.Second),
		id,
	)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return expectRow(res)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+`
WHERE b.is_active = ?
ORDER BY b.id
LIMIT ? OFFSET ?`, true, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user                                   domain.User
		fullName, phone, otp, pwd, image, kind sql.NullString
		gender                                 sql.NullString
		roleID, age                            sql.NullInt64
		lastLogin, otpCreated                  sql.NullTime
		height, weight                         sql.NullFloat64
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&fullName,
		&phone,
		&otp,
		&pwd,
		&image,
		&kind,
		&roleID,
		&lastLogin,
		&otpCreated,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&age,
		&gender,
		&height,
		&weight,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.FullName = stringPtr(fullName)
	user.PhoneNumber = stringPtr(phone)
	user.HashedOTP = stringPtr(otp)
	user.PasswordHash = stringPtr(pwd)
	user.ImagePath = stringPtr(image)
	user.UserType = kind.String
	user.LastLoginAt = timePtr(lastLogin)
	user.OTPCreatedAt = timePtr(otpCreated)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	if roleID.Valid {
		v := roleID.Int64
		user.RoleID = &v
	}
	if age.Valid {
		v := int(age.Int64)
		user.Profile.Age = &v
	}
	if gender.Valid {
		v := domain.Gender(gender.String)
		user.Profile.Gender = &v
	}
	if height.Valid {
		v := height.Float64
		user.Profile.Height = &v
	}
	if weight.Valid {
		v := weight.Float64
		user.Profile.Weight = &v
	}
	return &user, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
