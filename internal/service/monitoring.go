package service

import (
	"context"

	"servopanel/internal/models"
)

// MonitoringService exposes the read side of the coordinator: connectivity
// and the live status messages.
type MonitoringService struct {
	poller *PollerService
	status *StatusPresenter
}

func NewMonitoringService(poller *PollerService, status *StatusPresenter) *MonitoringService {
	return &MonitoringService{poller: poller, status: status}
}

// Connectivity returns the last probe outcome without contacting the backend.
func (s *MonitoringService) Connectivity() models.ConnectivityReport {
	return s.poller.Connectivity()
}

// CheckHealth probes the backend now.
func (s *MonitoringService) CheckHealth(ctx context.Context) models.ConnectivityReport {
	return s.poller.CheckHealth(ctx)
}

// Statuses lists the unexpired status messages.
func (s *MonitoringService) Statuses() []models.StatusMessage {
	return s.status.Current()
}
