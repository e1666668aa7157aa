package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
)

func TestStudyQueryService(t *testing.T) {
	s := newStack(t)
	for _, c := range [][2]string{{"S.1", "I.1"}, {"S.1", "I.2"}, {"S.2", "I.3"}} {
		if _, err := s.ingestion.Ingest(s.ctx, s.command("T.1", c[0], c[1])); err != nil {
			t.Fatalf("Ingest %v: %v", c, err)
		}
	}
	first, err := s.repos.Study.GetByUID(dbc(s), "T.1")
	if err != nil || first == nil {
		t.Fatalf("GetByUID: err=%v", err)
	}

	study, err := s.query.GetStudy(s.ctx, first.ID)
	if err != nil {
		t.Fatalf("GetStudy: %v", err)
	}
	if len(study.Series) != 2 || study.Series[0].SeriesInstanceUID != "S.1" || study.Series[1].SeriesNumber != 2 {
		t.Fatalf("series: %+v", study.Series)
	}
	if len(study.Series[0].Instances) != 2 || study.Series[0].Instances[1].InstanceNumber != 2 {
		t.Fatalf("instances of S.1: %+v", study.Series[0].Instances)
	}

	uid, err := s.query.GetStudyUID(s.ctx, first.ID)
	if err != nil || uid != "T.1" {
		t.Fatalf("GetStudyUID: uid=%q err=%v", uid, err)
	}

	if _, err := s.query.GetStudy(s.ctx, uuid.New()); !errors.Is(err, domainagg.ErrStudyNotFound) {
		t.Fatalf("missing study: got=%v", err)
	}
}
