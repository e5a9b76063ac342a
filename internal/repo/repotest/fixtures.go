package repotest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
)

// SeedClient stores a client user registered at createdAt.
func (s *Store) SeedClient(name string, student bool, createdAt time.Time) repo.User {
	ctx := context.Background()
	email := name + "@example.com"
	u := repo.User{FullName: name, Email: &email, Role: repo.RoleClient, CreatedAt: createdAt}
	if err := s.CreateUser(ctx, &u); err != nil {
		panic(err)
	}
	if err := s.UpsertClientProfile(ctx, &repo.ClientProfile{UserID: u.ID, IsStudent: student}); err != nil {
		panic(err)
	}
	return u
}

// SeedProfessional stores a professional user and its profile.
func (s *Store) SeedProfessional(name string, kind repo.Role, available bool) (repo.User, repo.Professional) {
	ctx := context.Background()
	phone := fmt.Sprintf("+98912%07d", len(s.Professionals()))
	u := repo.User{FullName: name, Phone: &phone, Role: kind}
	if err := s.CreateUser(ctx, &u); err != nil {
		panic(err)
	}
	p := repo.Professional{
		UserID:       u.ID,
		Kind:         kind,
		DisplayName:  name,
		IsAvailable:  available,
		SessionPrice: 1_000_000,
	}
	if err := s.CreateProfessional(ctx, &p); err != nil {
		panic(err)
	}
	return u, p
}

// SeedSlot stores one slot with the given flags.
func (s *Store) SeedSlot(professionalID uuid.UUID, date time.Time, clock string, available, booked bool) repo.TimeSlot {
	slot := repo.TimeSlot{
		ProfessionalID: professionalID,
		Date:           date,
		Time:           clock,
		IsAvailable:    available,
		IsBooked:       booked,
	}
	slots := []repo.TimeSlot{slot}
	if err := s.InsertTimeSlots(context.Background(), slots); err != nil {
		panic(err)
	}
	return slots[0]
}
