package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/fitlane/trainer-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type visitRepository struct {
	db *sqlx.DB
}

type policyRepository struct {
	db *sqlx.DB
}

type serviceTypeRepository struct {
	db *sqlx.DB
}

type feeChargeRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

func NewPolicyRepository(db *sqlx.DB) repository.PolicyRepository {
	return &policyRepository{db: db}
}

func NewServiceTypeRepository(db *sqlx.DB) repository.ServiceTypeRepository {
	return &serviceTypeRepository{db: db}
}

func NewFeeChargeRepository(db *sqlx.DB) repository.FeeChargeRepository {
	return &feeChargeRepository{NewBaseRepository(db)}
}
