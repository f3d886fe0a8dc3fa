package repository

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/models"
)

// PostgresUserRepository implements UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db  *sql.DB
	log *logrus.Entry
}

func NewPostgresUserRepository(db *sql.DB, logger *logrus.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:  db,
		log: logger.WithField("component", "user-repository"),
	}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT user_id, username, first_name, last_name, email, role,
		       COALESCE(phone_number, ''), COALESCE(address, ''),
		       COALESCE(city, ''), COALESCE(country, ''), registration_date
		FROM users WHERE user_id = $1
	`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Role,
		&u.PhoneNumber, &u.Address, &u.City, &u.Country, &u.RegistrationDate,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Error("Failed to fetch user")
		return nil, err
	}
	return &u, nil
}
