// Package memory implements the repositories on in-process maps. It backs
// the "memory" database driver used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

// Store holds every table. Rows are copied in and out so callers never
// share memory with the store.
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	last         time.Time
	users        map[uuid.UUID]model.User
	tokens       map[uuid.UUID]model.AuthToken
	profiles     map[uuid.UUID]model.Profile
	patients     map[uuid.UUID]model.CareRecipient
	medications  map[uuid.UUID]model.MedicationPlan
	reminders    map[uuid.UUID]model.Reminder
	appointments map[uuid.UUID]model.Appointment
	reports      map[uuid.UUID]model.MedicalReport
}

func NewStore() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		users:        make(map[uuid.UUID]model.User),
		tokens:       make(map[uuid.UUID]model.AuthToken),
		profiles:     make(map[uuid.UUID]model.Profile),
		patients:     make(map[uuid.UUID]model.CareRecipient),
		medications:  make(map[uuid.UUID]model.MedicationPlan),
		reminders:    make(map[uuid.UUID]model.Reminder),
		appointments: make(map[uuid.UUID]model.Appointment),
		reports:      make(map[uuid.UUID]model.MedicalReport),
	}
}

// SetClock overrides the clock used for created_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// stamp returns a creation time strictly after every earlier one so
// newest-first ordering is deterministic.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) Patients() repository.PatientRepository         { return &patientRepo{s: s} }
func (s *Store) Medications() repository.MedicationRepository   { return &medicationRepo{s: s} }
func (s *Store) Reminders() repository.ReminderRepository       { return &reminderRepo{s: s} }
func (s *Store) Appointments() repository.AppointmentRepository { return &appointmentRepo{s: s} }
func (s *Store) Reports() repository.ReportRepository           { return &reportRepo{s: s} }
func (s *Store) Profiles() repository.ProfileRepository         { return &profileRepo{s: s} }
func (s *Store) Users() repository.UserRepository               { return &userRepo{s: s} }
func (s *Store) Tokens() repository.TokenRepository             { return &tokenRepo{s: s} }

// cascade removes everything that belongs to a patient. Callers hold mu.
func (s *Store) cascade(patientID uuid.UUID) {
	for id, m := range s.medications {
		if m.PatientID == patientID {
			delete(s.medications, id)
		}
	}
	for id, r := range s.reminders {
		if r.PatientID == patientID {
			delete(s.reminders, id)
		}
	}
	for id, a := range s.appointments {
		if a.PatientID == patientID {
			delete(s.appointments, id)
		}
	}
	for id, r := range s.reports {
		if r.PatientID == patientID {
			delete(s.reports, id)
		}
	}
}

func idSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

type patientRepo struct{ s *Store }

func (r *patientRepo) Create(ctx context.Context, p *model.CareRecipient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.s.stamp()
	p.UpdatedAt = p.CreatedAt
	r.s.patients[p.ID] = *p
	return nil
}

func (r *patientRepo) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok || p.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patientRepo) Update(ctx context.Context, p *model.CareRecipient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.patients[p.ID]
	if !ok || cur.OwnerID != p.OwnerID {
		return repository.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.patients[p.ID] = *p
	return nil
}

func (r *patientRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok || p.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.s.patients, id)
	r.s.cascade(id)
	return nil
}

func (r *patientRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.CareRecipient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.CareRecipient{}
	for _, p := range r.s.patients {
		if p.OwnerID == ownerID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *patientRepo) FindDuplicate(ctx context.Context, ownerID uuid.UUID, fullName, primaryContact string) (*model.CareRecipient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.patients {
		if p.OwnerID == ownerID && strings.EqualFold(p.FullName, fullName) && p.PrimaryContact == primaryContact {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

type medicationRepo struct{ s *Store }

func (r *medicationRepo) Create(ctx context.Context, m *model.MedicationPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.CreatedAt = r.s.stamp()
	r.s.medications[m.ID] = *m
	return nil
}

func (r *medicationRepo) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.medications[id]
	if !ok || m.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(r.s.medications, id)
	return nil
}

func (r *medicationRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicationPlan, error) {
	return r.ListByPatients(ctx, []uuid.UUID{patientID})
}

func (r *medicationRepo) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.MedicationPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	set := idSet(patientIDs)
	out := []*model.MedicationPlan{}
	for _, m := range r.s.medications {
		if set[m.PatientID] {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type reminderRepo struct{ s *Store }

func (r *reminderRepo) Create(ctx context.Context, rem *model.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem.CreatedAt = r.s.stamp()
	r.s.reminders[rem.ID] = *rem
	return nil
}

func (r *reminderRepo) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[id]
	if !ok || rem.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(r.s.reminders, id)
	return nil
}

func (r *reminderRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error) {
	return r.ListByPatients(ctx, []uuid.UUID{patientID})
}

func (r *reminderRepo) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Reminder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	set := idSet(patientIDs)
	out := []*model.Reminder{}
	for _, rem := range r.s.reminders {
		if set[rem.PatientID] {
			rem := rem
			out = append(out, &rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.CreatedAt = r.s.stamp()
	r.s.appointments[a.ID] = *a
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || a.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(r.s.appointments, id)
	return nil
}

func (r *appointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return r.ListByPatients(ctx, []uuid.UUID{patientID})
}

func (r *appointmentRepo) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	set := idSet(patientIDs)
	out := []*model.Appointment{}
	for _, a := range r.s.appointments {
		if set[a.PatientID] {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type reportRepo struct{ s *Store }

func (r *reportRepo) Create(ctx context.Context, rep *model.MedicalReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	rep.CreatedAt = r.s.stamp()
	r.s.reports[rep.ID] = *rep
	return nil
}

func (r *reportRepo) UpdateResult(ctx context.Context, rep *model.MedicalReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.reports[rep.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status = rep.Status
	cur.SummaryText = rep.SummaryText
	cur.StoragePath = rep.StoragePath
	cur.ExternalURL = rep.ExternalURL
	r.s.reports[rep.ID] = cur
	return nil
}

func (r *reportRepo) Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok || rep.OwnerID != ownerID || rep.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(r.s.reports, id)
	return nil
}

func (r *reportRepo) ListByPatient(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.MedicalReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.MedicalReport{}
	for _, rep := range r.s.reports {
		if rep.OwnerID == ownerID && rep.PatientID == patientID {
			rep := rep
			out = append(out, &rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type profileRepo struct{ s *Store }

func (r *profileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.UpdatedAt = r.s.now()
	r.s.profiles[p.UserID] = *p
	return nil
}

func (r *profileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	r.s.profiles[u.ID] = model.Profile{UserID: u.ID, FullName: u.DisplayName(), UpdatedAt: u.CreatedAt}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByPendingEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.PendingEmail != "" && strings.EqualFold(u.PendingEmail, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.s.now()
	r.s.users[u.ID] = *u
	return nil
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(ctx context.Context, t *model.AuthToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.s.now()
	r.s.tokens[t.ID] = *t
	return nil
}

func (r *tokenRepo) Consume(ctx context.Context, userID uuid.UUID, kind model.TokenKind, tokenHash string, now time.Time) (*model.AuthToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.tokens {
		if t.UserID != userID || t.Kind != string(kind) || t.TokenHash != tokenHash {
			continue
		}
		if t.ConsumedAt != nil || !now.Before(t.ExpiresAt) {
			continue
		}
		consumed := now
		t.ConsumedAt = &consumed
		r.s.tokens[id] = t
		return &t, nil
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) RecordFailure(ctx context.Context, userID uuid.UUID, kind model.TokenKind, now time.Time, maxAttempts int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.tokens {
		if t.UserID != userID || t.Kind != string(kind) {
			continue
		}
		if t.ConsumedAt != nil || !now.Before(t.ExpiresAt) {
			continue
		}
		t.Attempts++
		if t.Attempts >= maxAttempts {
			used := now
			t.ConsumedAt = &used
		}
		r.s.tokens[id] = t
	}
	return nil
}

func (r *tokenRepo) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}
