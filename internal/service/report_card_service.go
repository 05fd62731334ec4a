package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/config"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/export"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/numeric"
)

const (
	reportCardCacheNamespace = "report-card"
	termsPerYear             = 3
)

type scoredGradeReader interface {
	ListScoredByStudent(ctx context.Context, studentID string) ([]models.ScoredGrade, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// Rendered is a report card document ready for download.
type Rendered struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportCardOptions tunes aggregation and rendering.
type ReportCardOptions struct {
	SchoolName     string
	CanonicalTerms []string
	CacheTTL       time.Duration
}

// ReportCardService aggregates a student's grades into one row per subject.
type ReportCardService struct {
	grades   scoredGradeReader
	students studentReader
	sections sectionReader
	cache    reportCardCache
	metrics  *MetricsService
	pdf      documentRenderer
	csv      documentRenderer
	opts     ReportCardOptions
	logger   *zap.Logger
}

// NewReportCardService wires the report card service. Options missing three canonical
// term names fall back to config.DefaultCanonicalTerms.
func NewReportCardService(grades scoredGradeReader, students studentReader, sections sectionReader, cacheSvc *CacheService, metrics *MetricsService, pdf, csv documentRenderer, opts ReportCardOptions, logger *zap.Logger) *ReportCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.CanonicalTerms) != termsPerYear {
		opts.CanonicalTerms = config.DefaultCanonicalTerms
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	if csv == nil {
		csv = export.NewCSVRenderer()
	}
	return &ReportCardService{
		grades:   grades,
		students: students,
		sections: sections,
		cache:    reportCardCache{cache: cacheSvc},
		metrics:  metrics,
		pdf:      pdf,
		csv:      csv,
		opts:     opts,
		logger:   logger,
	}
}

// BuildReportRows returns the report rows of a student sorted by subject name.
func (s *ReportCardService) BuildReportRows(ctx context.Context, studentID string) ([]models.ReportCardRow, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.rows(ctx, studentID)
}

// ReportCard returns the named report card of a student. Teachers may only read students
// of sections they own.
func (s *ReportCardService) ReportCard(ctx context.Context, actor models.Principal, studentID string) (*models.ReportCard, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStudent(ctx, s.sections, actor, student); err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &models.ReportCard{StudentID: student.ID, StudentName: student.DisplayName(), Rows: rows}, nil
}

// RenderPDF renders the report card of a student as PDF.
func (s *ReportCardService) RenderPDF(ctx context.Context, actor models.Principal, studentID string) (*Rendered, error) {
	return s.render(ctx, actor, studentID, s.pdf, "pdf", "application/pdf")
}

// RenderCSV renders the report card of a student as CSV.
func (s *ReportCardService) RenderCSV(ctx context.Context, actor models.Principal, studentID string) (*Rendered, error) {
	return s.render(ctx, actor, studentID, s.csv, "csv", "text/csv")
}

func (s *ReportCardService) render(ctx context.Context, actor models.Principal, studentID string, renderer documentRenderer, ext, contentType string) (*Rendered, error) {
	card, err := s.ReportCard(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(s.document(card))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrReportRenderFailed.Code, appErrors.ErrReportRenderFailed.Status, appErrors.ErrReportRenderFailed.Message)
	}
	return &Rendered{
		Filename:    fmt.Sprintf("report-card-%s.%s", card.StudentID, ext),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *ReportCardService) document(card *models.ReportCard) export.Document {
	terms := s.opts.CanonicalTerms
	doc := export.Document{
		Title:    s.opts.SchoolName,
		Subtitle: "Estudiante: " + card.StudentName,
		Headers:  []string{"Materia", terms[0], terms[1], terms[2], "Total", "Promedio final"},
		Rows:     make([][]string, 0, len(card.Rows)),
	}
	for _, row := range card.Rows {
		doc.Rows = append(doc.Rows, []string{
			row.SubjectName,
			numeric.String(row.Term1),
			numeric.String(row.Term2),
			numeric.String(row.Term3),
			numeric.String(row.Total),
			numeric.String(row.FinalAverage),
		})
	}
	return doc
}

func (s *ReportCardService) rows(ctx context.Context, studentID string) ([]models.ReportCardRow, error) {
	start := time.Now()
	key, cacheable := s.cache.key(ctx, studentID)

	var cached []models.ReportCardRow
	if cacheable && s.cache.get(ctx, key, &cached) {
		s.metrics.ObserveReportBuild("cache", time.Since(start))
		return cached, nil
	}

	scored, err := s.grades.ListScoredByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student grades")
	}
	rows := AggregateReportRows(scored, s.opts.CanonicalTerms)

	if cacheable {
		s.cache.set(ctx, key, rows, s.opts.CacheTTL)
	}
	s.metrics.ObserveReportBuild("store", time.Since(start))
	return rows, nil
}

func (s *ReportCardService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

type termBucket struct {
	weighted decimal.Decimal
	weights  decimal.Decimal
}

// average is Σ(score×weight)/Σweight rounded half-up, or zero without weight.
func (b termBucket) average() decimal.Decimal {
	return numeric.DivRound2(b.weighted, b.weights)
}

type subjectBucket struct {
	id    string
	name  string
	terms [termsPerYear]termBucket
}

// AggregateReportRows groups scored grades by subject and computes the weighted average of
// each of the three canonical terms, matched by case-insensitive name. Grades in any
// other term are ignored. Rows are ordered by subject name, then id.
func AggregateReportRows(grades []models.ScoredGrade, terms []string) []models.ReportCardRow {
	bySubject := make(map[string]*subjectBucket)
	for _, g := range grades {
		bucket, ok := bySubject[g.SubjectID]
		if !ok {
			bucket = &subjectBucket{id: g.SubjectID, name: g.SubjectName}
			bySubject[g.SubjectID] = bucket
		}
		idx := termIndex(terms, g.TermName)
		if idx < 0 {
			continue
		}
		tb := &bucket.terms[idx]
		tb.weighted = tb.weighted.Add(g.Score.Mul(g.Weight))
		tb.weights = tb.weights.Add(g.Weight)
	}

	divisor := decimal.NewFromInt(termsPerYear)
	rows := make([]models.ReportCardRow, 0, len(bySubject))
	for _, bucket := range bySubject {
		t1 := bucket.terms[0].average()
		t2 := bucket.terms[1].average()
		t3 := bucket.terms[2].average()
		total := numeric.Sum(t1, t2, t3)
		rows = append(rows, models.ReportCardRow{
			SubjectID:    bucket.id,
			SubjectName:  bucket.name,
			Term1:        t1,
			Term2:        t2,
			Term3:        t3,
			Total:        total,
			FinalAverage: numeric.DivRound2(total, divisor),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SubjectName != rows[j].SubjectName {
			return rows[i].SubjectName < rows[j].SubjectName
		}
		return rows[i].SubjectID < rows[j].SubjectID
	})
	return rows
}

func termIndex(terms []string, name string) int {
	name = strings.TrimSpace(name)
	for i, term := range terms {
		if i >= termsPerYear {
			break
		}
		if strings.EqualFold(term, name) {
			return i
		}
	}
	return -1
}
