package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
)

const (
	ExportFormatLong = "long"
	ExportFormatGap  = "gap"
)

type ExportResult struct {
	Filename string
	Data     []byte
}

type ExportService struct {
	store SessionRepository
}

func NewExportService(store SessionRepository) *ExportService {
	return &ExportService{store: store}
}

// ExportCSV renders the session's responses: "long" is one row per response,
// "gap" is one row per participant with their average gap.
func (s *ExportService) ExportCSV(ctx context.Context, workshopID, format string) (*ExportResult, error) {
	id, err := requireWorkshopID(workshopID)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = ExportFormatLong
	}
	if format != ExportFormatLong && format != ExportFormatGap {
		return nil, NewInvalidError("unsupported format")
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var b []byte
	switch format {
	case ExportFormatLong:
		b, err = ExportLongCSV(sess.Responses)
	case ExportFormatGap:
		b, err = ExportGapCSV(sess.Responses)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{Filename: fmt.Sprintf("%s-%s.csv", id, format), Data: b}, nil
}

// ExportLongCSV writes one row per response in submission order.
func ExportLongCSV(rs []models.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{
		"response_id", "participant_id", "participant_name", "participant_role", "answer",
		"as_is_fact", "as_is_score", "to_be_will", "to_be_score", "gap",
		"solution_action", "solution_tags",
		"hope", "efficacy", "resilience", "optimism", "anxiety", "safety",
		"submitted_at",
	})
	for _, r := range rs {
		var action, tags string
		if r.Solution != nil {
			action = r.Solution.Action
			tags = strings.Join(r.Solution.Tags, ";")
		}
		hero := []string{"", "", "", ""}
		if r.Hero != nil {
			hero = []string{itoa(r.Hero.Hope), itoa(r.Hero.Efficacy), itoa(r.Hero.Resilience), itoa(r.Hero.Optimism)}
		}
		vuln := []string{"", ""}
		if r.Vulnerability != nil {
			vuln = []string{itoa(r.Vulnerability.Anxiety), itoa(r.Vulnerability.Safety)}
		}
		rec := []string{
			r.ID, r.ParticipantID, r.ParticipantName, string(r.ParticipantRole), r.Answer,
			r.AsIs.Fact, itoa(r.AsIs.Score), r.ToBe.Will, itoa(r.ToBe.Score), itoa(r.ComputeGap()),
			action, tags,
		}
		rec = append(rec, hero...)
		rec = append(rec, vuln...)
		rec = append(rec, r.SubmittedAt.UTC().Format(time.RFC3339))
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportGapCSV writes one row per participant, sorted by participant id.
func ExportGapCSV(rs []models.Response) ([]byte, error) {
	type agg struct {
		name  string
		count int
		gap   int
	}
	byParticipant := map[string]*agg{}
	for _, r := range rs {
		a := byParticipant[r.ParticipantID]
		if a == nil {
			a = &agg{}
			byParticipant[r.ParticipantID] = a
		}
		a.name = r.ParticipantName
		a.count++
		a.gap += r.ComputeGap()
	}
	pids := make([]string, 0, len(byParticipant))
	for pid := range byParticipant {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"participant_id", "participant_name", "responses", "average_gap"})
	for _, pid := range pids {
		a := byParticipant[pid]
		avg := strconv.FormatFloat(round2(float64(a.gap)/float64(a.count)), 'f', 2, 64)
		if err := w.Write([]string{pid, a.name, itoa(a.count), avg}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func itoa(i int) string { return strconv.Itoa(i) }
