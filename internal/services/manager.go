package services

import (
	"log/slog"
	"time"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

// ServiceManager bundles the service layer behind accessors so wiring code
// passes one value around instead of four.
type ServiceManager interface {
	Tests() TestService
	Import() ImportService
	Session() SessionService
	Results() ResultService
}

type serviceManager struct {
	tests   TestService
	imports ImportService
	session SessionService
	results ResultService
}

func NewServiceManager(
	repo repositories.Repository,
	bus *events.Bus,
	logger *slog.Logger,
	validator *validator.Validator,
	sessionTick time.Duration,
) ServiceManager {
	if sessionTick <= 0 {
		sessionTick = time.Second
	}
	return &serviceManager{
		tests:   NewTestService(repo, logger, validator),
		imports: NewImportService(repo, logger, validator),
		session: NewSessionService(repo, bus, logger, sessionTick),
		results: NewResultService(repo, logger),
	}
}

func (m *serviceManager) Tests() TestService      { return m.tests }
func (m *serviceManager) Import() ImportService   { return m.imports }
func (m *serviceManager) Session() SessionService { return m.session }
func (m *serviceManager) Results() ResultService  { return m.results }
