package services

import (
	"context"

	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

// DashboardStats is the admin dashboard headline payload.
type DashboardStats struct {
	TotalPopulation      int                 `json:"total_population"`
	TotalApplications    int                 `json:"total_applications"`
	PendingApplications  int                 `json:"pending_applications"`
	ApprovedApplications int                 `json:"approved_applications"`
	RejectedApplications int                 `json:"rejected_applications"`
	DocumentsUploaded    int                 `json:"documents_uploaded"`
	DocumentsValidated   int                 `json:"documents_validated"`
	RecentApplications   []types.Application `json:"recent_applications"`
}

// recentApplicationsLimit caps the activity feed on the dashboard.
const recentApplicationsLimit = 5

// DashboardService assembles read-only rollups for the admin landing page.
type DashboardService struct {
	repo *store.DashboardRepository
}

func NewDashboardService(repo *store.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Stats gathers the headline counts and the most recent applications.
func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	recent, err := s.repo.RecentApplications(ctx, recentApplicationsLimit)
	if err != nil {
		return DashboardStats{}, err
	}

	return DashboardStats{
		TotalPopulation:      counts.TotalPopulation,
		TotalApplications:    counts.TotalApplications,
		PendingApplications:  counts.PendingApplications,
		ApprovedApplications: counts.ApprovedApplications,
		RejectedApplications: counts.RejectedApplications,
		DocumentsUploaded:    counts.DocumentsUploaded,
		DocumentsValidated:   counts.DocumentsValidated,
		RecentApplications:   recent,
	}, nil
}

// ApplicationsByType counts applications per type. Types with no rows are
// reported as zero so the breakdown always has a stable shape.
func (s *DashboardService) ApplicationsByType(ctx context.Context) (map[types.ApplicationType]int, error) {
	counts, err := s.repo.ApplicationCountsByType(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range types.ApplicationTypes() {
		if _, ok := counts[t]; !ok {
			counts[t] = 0
		}
	}
	return counts, nil
}

// PopulationByRegion counts citizen records per kabupaten.
func (s *DashboardService) PopulationByRegion(ctx context.Context) (map[string]int, error) {
	return s.repo.PopulationCountsByRegion(ctx)
}
