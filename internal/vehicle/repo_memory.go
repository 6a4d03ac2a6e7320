package vehicle

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory vehicle repository for tests and early
// development. It enforces the same uniqueness contract as the store.
type MemoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	vehicles map[int64]Vehicle
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{nextID: 1, vehicles: map[int64]Vehicle{}}
}

func (r *MemoryRepo) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(v, 0) {
		return Vehicle{}, ErrConflict
	}

	now := time.Now().UTC()
	v.ID = r.nextID
	r.nextID++
	v.CreatedAt = now
	v.UpdatedAt = now
	r.vehicles[v.ID] = v
	return v, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok {
		return Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (r *MemoryRepo) Update(ctx context.Context, v Vehicle) (Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.vehicles[v.ID]
	if !ok {
		return Vehicle{}, ErrNotFound
	}
	if r.conflicts(v, v.ID) {
		return Vehicle{}, ErrConflict
	}

	v.CreatedAt = existing.CreatedAt
	v.CreatedBy = existing.CreatedBy
	v.UpdatedAt = time.Now().UTC()
	r.vehicles[v.ID] = v
	return v, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) (Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok {
		return Vehicle{}, ErrNotFound
	}
	delete(r.vehicles, id)
	return v, nil
}

func (r *MemoryRepo) List(ctx context.Context, filters []Filter) ([]Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		if matchesAll(v, filters) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Make != out[j].Make {
			return out[i].Make < out[j].Make
		}
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) conflicts(v Vehicle, excludeID int64) bool {
	for id, other := range r.vehicles {
		if id == excludeID {
			continue
		}
		if other.RegistrationNumber == v.RegistrationNumber ||
			other.VIN == v.VIN ||
			other.CertificateNumber == v.CertificateNumber {
			return true
		}
	}
	return false
}

func matchesAll(v Vehicle, filters []Filter) bool {
	for _, f := range filters {
		if !matches(fieldValue(v, f.Field), f) {
			return false
		}
	}
	return true
}

func matches(value string, f Filter) bool {
	switch f.Mode {
	case MatchContainsFold:
		return strings.Contains(strings.ToLower(value), strings.ToLower(f.Value))
	case MatchExactFold:
		return strings.EqualFold(value, f.Value)
	default:
		return value == f.Value
	}
}

func fieldValue(v Vehicle, field string) string {
	switch field {
	case "make":
		return v.Make
	case "model":
		return v.Model
	case "color":
		return v.Color
	case "registration_number":
		return v.RegistrationNumber
	case "year_of_manufacture":
		return strconv.Itoa(v.YearOfManufacture)
	case "vin":
		return v.VIN
	case "vehicle_certificate_number":
		return v.CertificateNumber
	case "vehicle_certificate_date":
		return v.CertificateDate.String()
	default:
		return ""
	}
}
