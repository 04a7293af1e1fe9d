package cache

import (
	"testing"
	"time"

	"github.com/verity/verity/internal/model"
)

func sampleReport(id string) *model.ValidationReport {
	return &model.ValidationReport{
		ApplicationID: id,
		IsComplete:    true,
		OverallResult: model.VerdictCriticalError,
		CheckedAt:     "2025-06-01T12:00:00.000000Z",
		Checks: []model.CheckResult{
			{DocumentTitle: "passport.pdf", Type: "passport", CheckDisplayTitle: "Passport Validity", Status: model.CheckFail},
		},
	}
}

func TestReportStore_PutGet(t *testing.T) {
	s := NewReportStore(time.Hour, time.Minute)

	if _, ok := s.Get("42"); ok {
		t.Fatal("expected empty store")
	}

	s.Put(sampleReport("42"))
	got, ok := s.Get("42")
	if !ok {
		t.Fatal("expected stored report")
	}
	if got.OverallResult != model.VerdictCriticalError || len(got.Checks) != 1 {
		t.Errorf("unexpected report %+v", got)
	}

	// callers cannot mutate the stored copy
	got.Checks[0].Message = "changed"
	again, _ := s.Get("42")
	if again.Checks[0].Message != "" {
		t.Error("stored report was mutated through a returned copy")
	}

	s.Put(&model.ValidationReport{ApplicationID: "42", OverallResult: model.VerdictSuccess})
	latest, _ := s.Get("42")
	if latest.OverallResult != model.VerdictSuccess {
		t.Errorf("expected latest report to replace earlier one, got %s", latest.OverallResult)
	}
	s.Delete("42")
	if _, ok := s.Get("42"); ok {
		t.Error("expected report to be deleted")
	}
}

func TestReportStore_Expiry(t *testing.T) {
	s := NewReportStore(20*time.Millisecond, time.Millisecond)
	s.Put(sampleReport("7"))

	time.Sleep(60 * time.Millisecond)
	if _, ok := s.Get("7"); ok {
		t.Error("expected report to expire")
	}
}

func TestReportKey(t *testing.T) {
	if ReportKey("abc") != "verity:v1:report:abc" {
		t.Errorf("unexpected key %s", ReportKey("abc"))
	}
}
