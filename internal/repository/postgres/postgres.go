package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/mindease/booking-api/internal/repository"
)

type slotRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type paymentIntentRepository struct {
	db *sqlx.DB
}

type counsellorRepository struct {
	db *sqlx.DB
}

type clientRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewSlotRepository(db *sqlx.DB) repository.SlotRepository {
	return &slotRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewPaymentIntentRepository(db *sqlx.DB) repository.PaymentIntentRepository {
	return &paymentIntentRepository{db: db}
}

func NewCounsellorRepository(db *sqlx.DB) repository.CounsellorRepository {
	return &counsellorRepository{db: db}
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
