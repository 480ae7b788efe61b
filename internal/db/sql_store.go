package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/models"
	"github.com/soaringjerry/Huddle/internal/services"
)

// SQLStore persists sessions in three tables. Every operation runs in one
// transaction; status changes are validated against the row read inside it.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	log     logrus.FieldLogger
	now     func() time.Time
}

var _ services.SessionRepository = (*SQLStore)(nil)

func NewSQLStore(conn *sql.DB, d Dialect, log logrus.FieldLogger) (*SQLStore, error) {
	if conn == nil {
		return nil, errors.New("nil db")
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &SQLStore{
		db:      conn,
		dialect: d,
		log:     log.WithField("component", "sql_store"),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			s.log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Debug("transaction rolled back")
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%s: commit: %w", op, cerr)
		}
	}()
	return fn(tx)
}

func (s *SQLStore) Get(ctx context.Context, workshopID string) (*models.Session, error) {
	var out *models.Session
	err := s.withTx(ctx, "get", func(tx *sql.Tx) error {
		if err := s.ensureWorkshop(ctx, tx, workshopID); err != nil {
			return err
		}
		sess, err := s.loadSession(ctx, tx, workshopID, false)
		out = sess
		return err
	})
	return out, err
}

func (s *SQLStore) Put(ctx context.Context, workshopID string, u models.SessionUpdate) (*models.Session, error) {
	var out *models.Session
	err := s.withTx(ctx, "put", func(tx *sql.Tx) error {
		if err := s.ensureWorkshop(ctx, tx, workshopID); err != nil {
			return err
		}
		sess, err := s.loadSession(ctx, tx, workshopID, true)
		if err != nil {
			return err
		}
		if err := sess.Apply(u, s.now()); err != nil {
			return err
		}
		question, err := nullJSON(sess.CurrentQuestion, sess.CurrentQuestion != nil)
		if err != nil {
			return err
		}
		analysis, err := nullJSON(sess.Analysis, sess.Analysis != nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.dialect.rebind(
			`UPDATE workshops SET status = ?, current_question = ?, analysis = ?, version = ?, updated_at = ? WHERE id = ?`),
			string(sess.Status), question, analysis, sess.Version, toNanos(sess.UpdatedAt), workshopID)
		if err != nil {
			return fmt.Errorf("update workshop %s: %w", workshopID, err)
		}
		out = sess
		return nil
	})
	return out, err
}

func (s *SQLStore) AppendParticipant(ctx context.Context, workshopID string, p models.Participant) (bool, error) {
	added := false
	err := s.withTx(ctx, "append_participant", func(tx *sql.Tx) error {
		if err := s.ensureWorkshop(ctx, tx, workshopID); err != nil {
			return err
		}
		if err := s.lockWorkshop(ctx, tx, workshopID); err != nil {
			return err
		}
		var exists int
		err := tx.QueryRowContext(ctx, s.dialect.rebind(
			`SELECT 1 FROM participants WHERE workshop_id = ? AND id = ?`), workshopID, p.ID).Scan(&exists)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check participant %s: %w", p.ID, err)
		}
		seq, err := s.nextSeq(ctx, tx, "participants", workshopID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO participants (workshop_id, id, name, role, energy_level, current_mode, openness, joined_at, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			workshopID, p.ID, p.Name, string(p.Role), p.Stance.EnergyLevel, string(p.Stance.CurrentMode),
			p.Stance.Openness, toNanos(p.JoinedAt), seq)
		if err != nil {
			return fmt.Errorf("insert participant %s: %w", p.ID, err)
		}
		added = true
		return s.bumpVersion(ctx, tx, workshopID, p.JoinedAt)
	})
	return added, err
}

func (s *SQLStore) AppendResponse(ctx context.Context, workshopID string, r models.Response) error {
	return s.withTx(ctx, "append_response", func(tx *sql.Tx) error {
		if err := s.ensureWorkshop(ctx, tx, workshopID); err != nil {
			return err
		}
		if err := s.lockWorkshop(ctx, tx, workshopID); err != nil {
			return err
		}
		seq, err := s.nextSeq(ctx, tx, "responses", workshopID)
		if err != nil {
			return err
		}
		var action, tags sql.NullString
		if r.Solution != nil {
			action = sql.NullString{String: r.Solution.Action, Valid: true}
			if tags, err = nullJSON(r.Solution.Tags, len(r.Solution.Tags) > 0); err != nil {
				return err
			}
		}
		var hope, efficacy, resilience, optimism sql.NullInt64
		if h := r.Hero; h != nil {
			hope, efficacy, resilience, optimism = nullInt(h.Hope), nullInt(h.Efficacy), nullInt(h.Resilience), nullInt(h.Optimism)
		}
		var anxiety, safety sql.NullInt64
		if v := r.Vulnerability; v != nil {
			anxiety, safety = nullInt(v.Anxiety), nullInt(v.Safety)
		}
		_, err = tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO responses (id, workshop_id, participant_id, participant_name, participant_role, answer,
			   as_is_fact, as_is_score, to_be_will, to_be_score, gap, solution_action, solution_tags,
			   hero_hope, hero_efficacy, hero_resilience, hero_optimism, vulnerability_anxiety, vulnerability_safety,
			   submitted_at, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			r.ID, workshopID, r.ParticipantID, r.ParticipantName, string(r.ParticipantRole), r.Answer,
			r.AsIs.Fact, r.AsIs.Score, r.ToBe.Will, r.ToBe.Score, r.Gap, action, tags,
			hope, efficacy, resilience, optimism, anxiety, safety,
			toNanos(r.SubmittedAt), seq)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate response id %s: %w", r.ID, err)
			}
			return fmt.Errorf("insert response %s: %w", r.ID, err)
		}
		return s.bumpVersion(ctx, tx, workshopID, r.SubmittedAt)
	})
}

func (s *SQLStore) List(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT w.id, w.status, w.updated_at,
		(SELECT COUNT(*) FROM participants p WHERE p.workshop_id = w.id),
		(SELECT COUNT(*) FROM responses r WHERE r.workshop_id = w.id)
		FROM workshops w ORDER BY w.updated_at DESC, w.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []models.SessionSummary{}
	for rows.Next() {
		var (
			sum     models.SessionSummary
			status  string
			updated int64
		)
		if err := rows.Scan(&sum.ID, &status, &updated, &sum.ParticipantCount, &sum.ResponseCount); err != nil {
			return nil, fmt.Errorf("scan workshop: %w", err)
		}
		sum.Status = models.Status(status)
		sum.UpdatedAt = fromNanos(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) ensureWorkshop(ctx context.Context, tx *sql.Tx, id string) error {
	now := toNanos(s.now())
	_, err := tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO workshops (id, status, version, created_at, updated_at) VALUES (?, ?, 0, ?, ?) ON CONFLICT (id) DO NOTHING`),
		id, string(models.StatusPreparation), now, now)
	if err != nil {
		return fmt.Errorf("create workshop %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) lockWorkshop(ctx context.Context, tx *sql.Tx, id string) error {
	var version int64
	err := tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT version FROM workshops WHERE id = ?`+s.dialect.lockClause()), id).Scan(&version)
	if err != nil {
		return fmt.Errorf("lock workshop %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) bumpVersion(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	_, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE workshops SET version = version + 1, updated_at = ? WHERE id = ?`), toNanos(at), id)
	if err != nil {
		return fmt.Errorf("bump workshop version %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) nextSeq(ctx context.Context, tx *sql.Tx, table, id string) (int64, error) {
	var seq int64
	q := fmt.Sprintf(`SELECT COALESCE(MAX(seq), 0) + 1 FROM %s WHERE workshop_id = ?`, table)
	if err := tx.QueryRowContext(ctx, s.dialect.rebind(q), id).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next %s seq: %w", table, err)
	}
	return seq, nil
}

func (s *SQLStore) loadSession(ctx context.Context, tx *sql.Tx, id string, lock bool) (*models.Session, error) {
	q := `SELECT id, status, current_question, analysis, version, created_at, updated_at FROM workshops WHERE id = ?`
	if lock {
		q += s.dialect.lockClause()
	}
	var (
		sess               models.Session
		status             string
		question, analysis sql.NullString
		created, updated   int64
	)
	err := tx.QueryRowContext(ctx, s.dialect.rebind(q), id).Scan(&sess.ID, &status, &question, &analysis, &sess.Version, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("load workshop %s: %w", id, err)
	}
	sess.Status = models.Status(status)
	sess.CreatedAt, sess.UpdatedAt = fromNanos(created), fromNanos(updated)
	if question.Valid {
		sess.CurrentQuestion = &models.Question{}
		if err := decodeJSON(question, sess.CurrentQuestion); err != nil {
			return nil, fmt.Errorf("decode question for %s: %w", id, err)
		}
	}
	if analysis.Valid {
		sess.Analysis = &models.AnalysisResult{}
		if err := decodeJSON(analysis, sess.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis for %s: %w", id, err)
		}
	}
	if sess.Participants, err = s.loadParticipants(ctx, tx, id); err != nil {
		return nil, err
	}
	if sess.Responses, err = s.loadResponses(ctx, tx, id); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLStore) loadParticipants(ctx context.Context, tx *sql.Tx, id string) ([]models.Participant, error) {
	rows, err := tx.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, name, role, energy_level, current_mode, openness, joined_at FROM participants WHERE workshop_id = ? ORDER BY seq ASC`), id)
	if err != nil {
		return nil, fmt.Errorf("load participants for %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	out := []models.Participant{}
	for rows.Next() {
		var (
			p          models.Participant
			role, mode string
			joined     int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &role, &p.Stance.EnergyLevel, &mode, &p.Stance.Openness, &joined); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.Role, p.Stance.CurrentMode, p.JoinedAt = models.Role(role), models.Mode(mode), fromNanos(joined)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) loadResponses(ctx context.Context, tx *sql.Tx, id string) ([]models.Response, error) {
	rows, err := tx.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, participant_id, participant_name, participant_role, answer, as_is_fact, as_is_score,
		   to_be_will, to_be_score, gap, solution_action, solution_tags,
		   hero_hope, hero_efficacy, hero_resilience, hero_optimism, vulnerability_anxiety, vulnerability_safety, submitted_at
		 FROM responses WHERE workshop_id = ? ORDER BY seq ASC`), id)
	if err != nil {
		return nil, fmt.Errorf("load responses for %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	out := []models.Response{}
	for rows.Next() {
		var (
			r                                    models.Response
			role                                 string
			action, tags                         sql.NullString
			hope, efficacy, resilience, optimism sql.NullInt64
			anxiety, safety                      sql.NullInt64
			submitted                            int64
		)
		if err := rows.Scan(&r.ID, &r.ParticipantID, &r.ParticipantName, &role, &r.Answer, &r.AsIs.Fact, &r.AsIs.Score,
			&r.ToBe.Will, &r.ToBe.Score, &r.Gap, &action, &tags,
			&hope, &efficacy, &resilience, &optimism, &anxiety, &safety, &submitted); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.ParticipantRole = models.Role(role)
		r.SubmittedAt = fromNanos(submitted)
		if action.Valid {
			r.Solution = &models.Solution{Action: action.String}
			if tags.Valid {
				if err := decodeJSON(tags, &r.Solution.Tags); err != nil {
					return nil, fmt.Errorf("decode tags for response %s: %w", r.ID, err)
				}
			}
		}
		if hope.Valid {
			r.Hero = &models.Hero{Hope: int(hope.Int64), Efficacy: int(efficacy.Int64), Resilience: int(resilience.Int64), Optimism: int(optimism.Int64)}
		}
		if anxiety.Valid {
			r.Vulnerability = &models.Vulnerability{Anxiety: int(anxiety.Int64), Safety: int(safety.Int64)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(ns sql.NullString, dst any) error {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), dst)
}

func nullInt(i int) sql.NullInt64 { return sql.NullInt64{Int64: int64(i), Valid: true} }

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
