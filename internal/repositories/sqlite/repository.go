package sqlite

import (
	"gorm.io/gorm"

	"github.com/testcraft-app/testcraft-service/internal/repositories"
)

// Repository is the sqlite-backed aggregate. All durable state lives in one
// embedded database file; there is no external storage process.
type Repository struct {
	tests   repositories.TestRepository
	results repositories.ResultRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		tests:   NewTestSQLite(db),
		results: NewResultSQLite(db),
	}
}

func (r *Repository) Tests() repositories.TestRepository {
	return r.tests
}

func (r *Repository) Results() repositories.ResultRepository {
	return r.results
}
