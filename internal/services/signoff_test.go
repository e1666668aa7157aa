package services

import (
	"errors"
	"testing"

	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/events"
)

func TestSignoffServiceFullLifecycle(t *testing.T) {
	s := newStack(t)
	study := s.ingestStudy(t)

	if _, err := s.signoff.TechnicianVerify(s.ctx, study.ID, s.technician, stackPIN); err != nil {
		t.Fatalf("TechnicianVerify: %v", err)
	}
	res, err := s.signoff.RadiologistApprove(s.ctx, study.ID, s.radiologist, stackPIN)
	if err != nil {
		t.Fatalf("RadiologistApprove: %v", err)
	}
	if res.Status != types.StudyStatusApproved {
		t.Fatalf("status: want=APPROVED got=%s", res.Status)
	}

	var statuses []string
	for _, ev := range s.events.Snapshot() {
		if ev.Type != events.TypeStatusChanged {
			continue
		}
		if ev.StudyInstanceUID != study.StudyInstanceUID {
			t.Fatalf("status event without study uid: %+v", ev)
		}
		statuses = append(statuses, ev.Status)
	}
	if len(statuses) != 2 || statuses[0] != string(types.StudyStatusTechnicianVerified) || statuses[1] != string(types.StudyStatusApproved) {
		t.Fatalf("status events: %v", statuses)
	}
}

func TestSignoffServiceWrongPIN(t *testing.T) {
	s := newStack(t)
	study := s.ingestStudy(t)
	before := len(s.events.Snapshot())

	_, err := s.signoff.TechnicianVerify(s.ctx, study.ID, s.technician, "9999")
	if !errors.Is(err, domainagg.ErrAuthenticationFailed) {
		t.Fatalf("want ErrAuthenticationFailed got=%v", err)
	}
	if len(s.events.Snapshot()) != before {
		t.Fatalf("failed sign-off published an event")
	}
}
