package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/wpjson/user-service/internal/apierr"
	"github.com/wpjson/user-service/internal/models"
)

const userColumns = `id, user_login, user_pass, user_nicename, user_email, user_url,
		user_registered, display_name, first_name, last_name, nickname, description`

// orderColumns whitelists sortable columns; ORDER BY cannot be parameterized.
var orderColumns = map[string]string{
	"login": "user_login",
	"email": "user_email",
}

// Repository provides database operations against the users and usermeta tables
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Login, &user.Pass, &user.Nicename, &user.Email,
		&user.URL, &user.Registered, &user.DisplayName, &user.FirstName,
		&user.LastName, &user.Nickname, &user.Description)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByID retrieves a user by id; a missing user returns (nil, nil).
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %d: %w", id, err)
	}
	return user, nil
}

// FindUserByLogin retrieves a user by login name; a missing user returns (nil, nil).
func (r *Repository) FindUserByLogin(login string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE user_login = $1`, userColumns)
	user, err := scanUser(r.db.QueryRow(query, login))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %q: %w", login, err)
	}
	return user, nil
}

// ListUsers returns all users sorted by the given column and direction.
func (r *Repository) ListUsers(orderBy, order string) ([]*models.User, error) {
	column, ok := orderColumns[orderBy]
	if !ok {
		return nil, fmt.Errorf("unsupported order column %q", orderBy)
	}
	if order != "ASC" && order != "DESC" {
		return nil, fmt.Errorf("unsupported order %q", order)
	}

	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY %s %s`, userColumns, column, order)
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SaveUser persists the mutable fields of an existing user. A unique-constraint
// rejection from the database is surfaced as the backend's own validation
// error rather than a generic failure.
func (r *Repository) SaveUser(user *models.User) error {
	query := `
		UPDATE users
		SET user_nicename = $2, user_email = $3, user_url = $4, display_name = $5,
			first_name = $6, last_name = $7, nickname = $8, description = $9
		WHERE id = $1`
	res, err := r.db.Exec(query, user.ID, user.Nicename, user.Email, user.URL,
		user.DisplayName, user.FirstName, user.LastName, user.Nickname, user.Description)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return apierr.New("existing_user_email", "Sorry, that email address is already used!", 400)
		}
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d does not exist", user.ID)
	}
	return nil
}

// DeleteUser removes a user and all of its metadata. Reassigning the deleted
// user's content is not supported.
func (r *Repository) DeleteUser(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM usermeta WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete metadata for user %d: %w", id, err)
	}
	res, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d does not exist", id)
	}
	return nil
}

// GetAllMeta loads every metadata row for the user, preserving per-key value
// order by insertion id.
func (r *Repository) GetAllMeta(userID int64) (map[string][]string, error) {
	rows, err := r.db.Query(
		`SELECT meta_key, meta_value FROM usermeta WHERE user_id = $1 ORDER BY umeta_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata for user %d: %w", userID, err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		result[key] = append(result[key], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load metadata for user %d: %w", userID, err)
	}
	return result, nil
}

// UpsertMeta writes one metadata value: the oldest existing row for the key is
// updated in place, otherwise a new row is inserted. Callers writing several
// values for one key issue one call per value; there is no batching.
func (r *Repository) UpsertMeta(userID int64, key, value string) error {
	res, err := r.db.Exec(`
		UPDATE usermeta SET meta_value = $3
		WHERE umeta_id = (
			SELECT umeta_id FROM usermeta
			WHERE user_id = $1 AND meta_key = $2
			ORDER BY umeta_id LIMIT 1
		)`, userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to update metadata %q for user %d: %w", key, userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update metadata %q for user %d: %w", key, userID, err)
	}
	if affected > 0 {
		return nil
	}

	_, err = r.db.Exec(
		`INSERT INTO usermeta (user_id, meta_key, meta_value) VALUES ($1, $2, $3)`,
		userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to insert metadata %q for user %d: %w", key, userID, err)
	}
	return nil
}
