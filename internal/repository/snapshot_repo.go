package repository

import (
	"encoding/json"
	"errors"
	"io/fs"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"servopanel/internal/models"
)

// ErrNoSnapshot means no fleet listing was saved yet.
var ErrNoSnapshot = errors.New("no fleet snapshot saved")

const fleetSnapshotKey = "fleet.json"

// FleetSnapshot is the last listing a reload obtained from the backend.
type FleetSnapshot struct {
	SavedAt time.Time         `json:"saved_at"`
	Servos  []models.Actuator `json:"servos"`
}

// SnapshotRepo keeps the last known fleet on disk so it can be inspected while
// the backend is down. It is never used to seed the registry.
type SnapshotRepo interface {
	SaveFleet(servos []models.Actuator) error
	LoadFleet() (FleetSnapshot, error)
}

type SnapshotDiskv struct {
	d   *diskv.Diskv
	now func() time.Time
}

func NewSnapshotDiskv(basePath string) *SnapshotDiskv {
	return &SnapshotDiskv{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
		now: time.Now,
	}
}

func (s *SnapshotDiskv) SaveFleet(servos []models.Actuator) error {
	b, err := json.Marshal(FleetSnapshot{SavedAt: s.now().UTC(), Servos: servos})
	if err != nil {
		return err
	}
	return s.d.Write(fleetSnapshotKey, b)
}

func (s *SnapshotDiskv) LoadFleet() (FleetSnapshot, error) {
	b, err := s.d.Read(fleetSnapshotKey)
	if errors.Is(err, fs.ErrNotExist) {
		return FleetSnapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return FleetSnapshot{}, err
	}
	var snap FleetSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return FleetSnapshot{}, err
	}
	return snap, nil
}
