// Package memory holds map-backed repositories with the same semantics as the
// postgres ones. Services are tested against it.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/company"
	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/internal/domain/route"
	"waste-fleet-monitor/internal/domain/user"
)

// Store is a single in-process dataset shared by every repository.
type Store struct {
	mu sync.Mutex

	companies     []*company.Company
	licenses      []*company.License
	LicenseLog    []LicenseEntry
	users         map[uuid.UUID]*user.User
	profiles      map[uuid.UUID]*profile.Profile
	sensors       map[uuid.UUID]*device.Sensor
	trashbins     map[uuid.UUID]*device.Trashbin
	records       []*device.Record
	rawMessages   []*device.RawMessage
	onboarding    []*device.OnboardingRequest
	jobs          []*job.Job
	batches       map[uuid.UUID]*route.Batch
	routes        []*route.Route
	assignments   []*route.Assignment
	pushTokens    []*route.PushToken
	notifications []*notification.Notification

	// Transactions counts WithinTransaction calls that opened a transaction.
	Transactions int
}

// LicenseEntry is one usage balance change.
type LicenseEntry struct {
	LicenseID uuid.UUID
	Amount    int64
	Comment   string
}

func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*user.User),
		profiles:  make(map[uuid.UUID]*profile.Profile),
		sensors:   make(map[uuid.UUID]*device.Sensor),
		trashbins: make(map[uuid.UUID]*device.Trashbin),
		batches:   make(map[uuid.UUID]*route.Batch),
	}
}

type txKey struct{}

// WithinTransaction runs fn and restores the whole store when it fails.
// Nested calls join the outer transaction and are counted once.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	s.Transactions++
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	companies     []*company.Company
	licenses      []*company.License
	licenseLog    []LicenseEntry
	users         map[uuid.UUID]*user.User
	profiles      map[uuid.UUID]*profile.Profile
	sensors       map[uuid.UUID]*device.Sensor
	trashbins     map[uuid.UUID]*device.Trashbin
	records       []*device.Record
	rawMessages   []*device.RawMessage
	onboarding    []*device.OnboardingRequest
	jobs          []*job.Job
	batches       map[uuid.UUID]*route.Batch
	routes        []*route.Route
	assignments   []*route.Assignment
	pushTokens    []*route.PushToken
	notifications []*notification.Notification
}

// snapshot copies every row; the caller holds mu.
func (s *Store) snapshot() snapshot {
	return snapshot{
		companies:     cloneSlice(s.companies, shallow[company.Company]),
		licenses:      cloneSlice(s.licenses, shallow[company.License]),
		licenseLog:    append([]LicenseEntry(nil), s.LicenseLog...),
		users:         cloneMap(s.users, shallow[user.User]),
		profiles:      cloneMap(s.profiles, (*profile.Profile).Clone),
		sensors:       cloneMap(s.sensors, copySensor),
		trashbins:     cloneMap(s.trashbins, copyTrashbin),
		records:       cloneSlice(s.records, shallow[device.Record]),
		rawMessages:   cloneSlice(s.rawMessages, shallow[device.RawMessage]),
		onboarding:    cloneSlice(s.onboarding, shallow[device.OnboardingRequest]),
		jobs:          cloneSlice(s.jobs, shallow[job.Job]),
		batches:       cloneMap(s.batches, shallow[route.Batch]),
		routes:        cloneSlice(s.routes, copyRoute),
		assignments:   cloneSlice(s.assignments, shallow[route.Assignment]),
		pushTokens:    cloneSlice(s.pushTokens, shallow[route.PushToken]),
		notifications: cloneSlice(s.notifications, shallow[notification.Notification]),
	}
}

// restore swaps the snapshot in; the caller holds mu.
func (s *Store) restore(snap snapshot) {
	s.companies = snap.companies
	s.licenses = snap.licenses
	s.LicenseLog = snap.licenseLog
	s.users = snap.users
	s.profiles = snap.profiles
	s.sensors = snap.sensors
	s.trashbins = snap.trashbins
	s.records = snap.records
	s.rawMessages = snap.rawMessages
	s.onboarding = snap.onboarding
	s.jobs = snap.jobs
	s.batches = snap.batches
	s.routes = snap.routes
	s.assignments = snap.assignments
	s.pushTokens = snap.pushTokens
	s.notifications = snap.notifications
}

func shallow[T any](v *T) *T {
	c := *v
	return &c
}

func cloneSlice[T any](items []*T, clone func(*T) *T) []*T {
	if items == nil {
		return nil
	}
	out := make([]*T, len(items))
	for i, v := range items {
		out[i] = clone(v)
	}
	return out
}

func cloneMap[T any](items map[uuid.UUID]*T, clone func(*T) *T) map[uuid.UUID]*T {
	out := make(map[uuid.UUID]*T, len(items))
	for k, v := range items {
		out[k] = clone(v)
	}
	return out
}

// InTransaction reports whether ctx was produced by WithinTransaction.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

func (s *Store) Companies() *CompanyRepository           { return &CompanyRepository{s: s} }
func (s *Store) Users() *UserRepository                 { return &UserRepository{s: s} }
func (s *Store) Profiles() *ProfileRepository           { return &ProfileRepository{s: s} }
func (s *Store) Sensors() *SensorRepository             { return &SensorRepository{s: s} }
func (s *Store) Trashbins() *TrashbinRepository         { return &TrashbinRepository{s: s} }
func (s *Store) Records() *RecordRepository             { return &RecordRepository{s: s} }
func (s *Store) Onboarding() *OnboardingRepository      { return &OnboardingRepository{s: s} }
func (s *Store) Jobs() *JobRepository                   { return &JobRepository{s: s} }
func (s *Store) Routes() *RouteRepository               { return &RouteRepository{s: s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }
