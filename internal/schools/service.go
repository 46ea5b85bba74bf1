package schools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages schools and their lunch configurations. Every school row
// carries a time zone; deadline math everywhere else resolves through it.
type Service interface {
	Create(ctx context.Context, access scope.Access, input CreateSchoolInput) (*models.School, error)
	Update(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateSchoolInput) (*models.School, error)
	Get(ctx context.Context, access scope.Access, id uuid.UUID) (*models.School, error)
	List(ctx context.Context, access scope.Access) ([]models.School, error)

	GetLunchConfiguration(ctx context.Context, access scope.Access, schoolID uuid.UUID) (*models.LunchConfiguration, error)
	UpdateLunchConfiguration(ctx context.Context, access scope.Access, schoolID uuid.UUID, input UpdateLunchConfigurationInput) (*models.LunchConfiguration, error)

	Timezone(ctx context.Context, schoolID uuid.UUID) (*time.Location, error)
	Deadlines(ctx context.Context, schoolID uuid.UUID) (*DeadlineSet, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	defaults config.LunchConfig

	mu      sync.RWMutex
	tzCache map[uuid.UUID]*time.Location
}

// NewService builds a schools service. Zero-valued defaults fall back to the
// configured envconfig defaults for new schools.
func NewService(repo Repository, tx txRunner, defaults config.LunchConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("schools repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if defaults.DefaultTimezone == "" {
		defaults.DefaultTimezone = "America/Lima"
	}
	if defaults.DefaultOrderDeadline == "" {
		defaults.DefaultOrderDeadline = "08:30"
	}
	if defaults.DefaultCancelDeadline == "" {
		defaults.DefaultCancelDeadline = "08:30"
	}
	if defaults.DefaultModificationCutoff == "" {
		defaults.DefaultModificationCutoff = "09:00"
	}
	return &service{
		repo:     repo,
		tx:       tx,
		defaults: defaults,
		tzCache:  map[uuid.UUID]*time.Location{},
	}, nil
}

// CreateSchoolInput captures the fields for a new school tenant.
type CreateSchoolInput struct {
	Name     string
	Code     string
	Timezone string
}

// UpdateSchoolInput carries optional school updates. Code is immutable.
type UpdateSchoolInput struct {
	Name     *string
	Timezone *string
	IsActive *bool
}

// UpdateLunchConfigurationInput carries optional "HH:MM" deadline updates.
type UpdateLunchConfigurationInput struct {
	OrderDeadline      *string
	CancelDeadline     *string
	ModificationCutoff *string
}

// DeadlineSet bundles a school's lunch deadlines with its resolved zone so
// callers anchor them on concrete dates.
type DeadlineSet struct {
	OrderDeadline      string
	CancelDeadline     string
	ModificationCutoff string
	Location           *time.Location
}

func (s *service) Create(ctx context.Context, access scope.Access, input CreateSchoolInput) (*models.School, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage schools")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	code := strings.ToLower(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code required")
	}
	tz := input.Timezone
	if tz == "" {
		tz = s.defaults.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown timezone %q", tz))
	}

	school := &models.School{
		Name:     input.Name,
		Code:     code,
		Timezone: tz,
		IsActive: true,
	}
	// A school is unusable without its deadline row; create both together.
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, school); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create school")
		}
		cfg := &models.LunchConfiguration{
			SchoolID:           school.ID,
			OrderDeadline:      s.defaults.DefaultOrderDeadline,
			CancelDeadline:     s.defaults.DefaultCancelDeadline,
			ModificationCutoff: s.defaults.DefaultModificationCutoff,
		}
		if err := repo.CreateLunchConfiguration(ctx, cfg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lunch configuration")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return school, nil
}

func (s *service) Update(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateSchoolInput) (*models.School, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage schools")
	}
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "school not found")
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be blank")
		}
		school.Name = *input.Name
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown timezone %q", *input.Timezone))
		}
		school.Timezone = *input.Timezone
	}
	if input.IsActive != nil {
		school.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, school); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update school")
	}

	s.mu.Lock()
	delete(s.tzCache, school.ID)
	s.mu.Unlock()
	return school, nil
}

func (s *service) Get(ctx context.Context, access scope.Access, id uuid.UUID) (*models.School, error) {
	if err := access.Require(id); err != nil {
		return nil, err
	}
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "school not found")
	}
	return school, nil
}

func (s *service) List(ctx context.Context, access scope.Access) ([]models.School, error) {
	if !access.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins list schools")
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schools")
	}
	return rows, nil
}

func (s *service) GetLunchConfiguration(ctx context.Context, access scope.Access, schoolID uuid.UUID) (*models.LunchConfiguration, error) {
	if err := access.Require(schoolID); err != nil {
		return nil, err
	}
	cfg, err := s.repo.FindLunchConfiguration(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "lunch configuration not found")
	}
	return cfg, nil
}

func (s *service) UpdateLunchConfiguration(ctx context.Context, access scope.Access, schoolID uuid.UUID, input UpdateLunchConfigurationInput) (*models.LunchConfiguration, error) {
	cfg, err := s.GetLunchConfiguration(ctx, access, schoolID)
	if err != nil {
		return nil, err
	}
	if err := applyClock(input.OrderDeadline, &cfg.OrderDeadline); err != nil {
		return nil, err
	}
	if err := applyClock(input.CancelDeadline, &cfg.CancelDeadline); err != nil {
		return nil, err
	}
	if err := applyClock(input.ModificationCutoff, &cfg.ModificationCutoff); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLunchConfiguration(ctx, cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lunch configuration")
	}
	return cfg, nil
}

// Timezone resolves a school's zone. Zones rarely change so resolved
// locations are cached; Update invalidates.
func (s *service) Timezone(ctx context.Context, schoolID uuid.UUID) (*time.Location, error) {
	s.mu.RLock()
	loc, ok := s.tzCache[schoolID]
	s.mu.RUnlock()
	if ok {
		return loc, nil
	}

	school, err := s.repo.FindByID(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "school not found")
	}
	loc, err = time.LoadLocation(school.Timezone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load school timezone")
	}

	s.mu.Lock()
	s.tzCache[schoolID] = loc
	s.mu.Unlock()
	return loc, nil
}

func (s *service) Deadlines(ctx context.Context, schoolID uuid.UUID) (*DeadlineSet, error) {
	cfg, err := s.repo.FindLunchConfiguration(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "lunch configuration not found")
	}
	loc, err := s.Timezone(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return &DeadlineSet{
		OrderDeadline:      cfg.OrderDeadline,
		CancelDeadline:     cfg.CancelDeadline,
		ModificationCutoff: cfg.ModificationCutoff,
		Location:           loc,
	}, nil
}

func applyClock(value *string, target *string) error {
	if value == nil {
		return nil
	}
	if _, _, err := ledger.ParseClock(*value); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	*target = *value
	return nil
}
