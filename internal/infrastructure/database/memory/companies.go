package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/company"
	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/domain/user"
)

type CompanyRepository struct{ s *Store }

// Add registers a company with its licenses.
func (r *CompanyRepository) Add(c *company.Company, licenses ...*company.License) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.companies = append(r.s.companies, c)
	for _, l := range licenses {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.CompanyID = c.ID
		r.s.licenses = append(r.s.licenses, l)
	}
}

func (r *CompanyRepository) List(_ context.Context) ([]*company.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*company.Company, len(r.s.companies))
	for i, c := range r.s.companies {
		cc := *c
		out[i] = &cc
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CompanyRepository) LatestLicense(_ context.Context, companyID uuid.UUID) (*company.License, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *company.License
	for _, l := range r.s.licenses {
		if l.CompanyID == companyID && (latest == nil || l.End.After(latest.End)) {
			latest = l
		}
	}
	if latest == nil {
		return nil, company.ErrLicenseNotFound
	}
	c := *latest
	return &c, nil
}

func (r *CompanyRepository) AdjustUsageBalance(_ context.Context, licenseID uuid.UUID, amount int64, comment string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.licenses {
		if l.ID == licenseID {
			l.UsageBalance += amount
			r.s.LicenseLog = append(r.s.LicenseLog, LicenseEntry{LicenseID: licenseID, Amount: amount, Comment: comment})
			return nil
		}
	}
	return company.ErrLicenseNotFound
}

// UserRepository serves both user lookups and notification recipients.
type UserRepository struct{ s *Store }

func (r *UserRepository) Add(u *user.User) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	c := *u
	r.s.users[u.ID] = &c
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) ListByCompany(_ context.Context, companyID uuid.UUID, role user.Role) ([]*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*user.User
	for _, u := range r.s.users {
		if u.CompanyID == companyID && u.IsActive && (role == "" || u.Role == role) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *UserRepository) CompanyRecipients(_ context.Context, companyID uuid.UUID) ([]notification.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []notification.Recipient
	for _, u := range r.s.users {
		if u.CompanyID != companyID || !u.IsActive || !u.Notify {
			continue
		}
		if u.Role != user.RoleOperator && u.Role != user.RoleAdmin {
			continue
		}
		out = append(out, notification.Recipient{UserID: u.ID, Email: u.Email, Name: u.FullName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *UserRepository) GetRecipients(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]notification.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID]notification.Recipient, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = notification.Recipient{UserID: u.ID, Email: u.Email, Name: u.FullName}
		}
	}
	return out, nil
}
