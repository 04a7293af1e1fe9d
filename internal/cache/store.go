package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/verity/verity/internal/model"
)

// ReportStore keeps the latest report per application in memory until its
// TTL expires. Nothing is persisted.
type ReportStore struct {
	cache *gocache.Cache
}

// NewReportStore creates a store; ttl <= 0 keeps reports until deleted
func NewReportStore(ttl time.Duration, cleanupInterval time.Duration) *ReportStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &ReportStore{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// ReportKey is the cache key of an application's report
func ReportKey(applicationID string) string {
	return "verity:v1:report:" + applicationID
}

// Put stores a copy of report, replacing any earlier one
func (s *ReportStore) Put(report *model.ValidationReport) {
	stored := *report
	stored.Checks = append([]model.CheckResult(nil), report.Checks...)
	s.cache.Set(ReportKey(report.ApplicationID), &stored, gocache.DefaultExpiration)
}

// Get returns a copy of the stored report for applicationID
func (s *ReportStore) Get(applicationID string) (*model.ValidationReport, bool) {
	val, found := s.cache.Get(ReportKey(applicationID))
	if !found {
		return nil, false
	}
	stored := *val.(*model.ValidationReport)
	stored.Checks = append([]model.CheckResult{}, stored.Checks...)
	return &stored, true
}

// Delete removes the report for applicationID
func (s *ReportStore) Delete(applicationID string) {
	s.cache.Delete(ReportKey(applicationID))
}
