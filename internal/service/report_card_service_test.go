package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/export"
)

var canonicalTerms = []string{"Trimestre 1", "Trimestre 2", "Trimestre 3"}

func scored(subjectID, subjectName, term, score, weight string) models.ScoredGrade {
	return models.ScoredGrade{SubjectID: subjectID, SubjectName: subjectName, TermName: term, Score: dec(score), Weight: dec(weight)}
}

func TestAggregateWeightedTermAverage(t *testing.T) {
	rows := AggregateReportRows([]models.ScoredGrade{
		scored("math", "Matematica", "Trimestre 1", "80", "60"),
		scored("math", "Matematica", "Trimestre 1", "100", "40"),
	}, canonicalTerms)

	require.Len(t, rows, 1)
	assert.Equal(t, "88.00", rows[0].Term1.StringFixed(2))
	assert.True(t, rows[0].Term2.IsZero())
	assert.True(t, rows[0].Term3.IsZero())
	assert.Equal(t, "88.00", rows[0].Total.StringFixed(2))
	assert.Equal(t, "29.33", rows[0].FinalAverage.StringFixed(2))
}

func TestAggregateFinalAverageRoundsHalfUp(t *testing.T) {
	rows := AggregateReportRows([]models.ScoredGrade{
		scored("math", "Matematica", "Trimestre 1", "80", "60"),
		scored("math", "Matematica", "Trimestre 1", "100", "40"),
		scored("math", "Matematica", "Trimestre 2", "90", "100"),
		scored("math", "Matematica", "Trimestre 3", "79", "50"),
	}, canonicalTerms)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "88.00", row.Term1.StringFixed(2))
	assert.Equal(t, "90.00", row.Term2.StringFixed(2))
	assert.Equal(t, "79.00", row.Term3.StringFixed(2))
	assert.Equal(t, "257.00", row.Total.StringFixed(2))
	assert.Equal(t, "85.67", row.FinalAverage.StringFixed(2))
}

func TestAggregateTermAverageRounding(t *testing.T) {
	// (70×1 + 84.50×2) / 3 = 79.666...
	rows := AggregateReportRows([]models.ScoredGrade{
		scored("math", "Matematica", "Trimestre 1", "70", "1"),
		scored("math", "Matematica", "Trimestre 1", "84.50", "2"),
	}, canonicalTerms)
	assert.Equal(t, "79.67", rows[0].Term1.StringFixed(2))
}

func TestAggregateZeroWeightTermIsZero(t *testing.T) {
	rows := AggregateReportRows([]models.ScoredGrade{
		scored("math", "Matematica", "Trimestre 2", "95", "0"),
	}, canonicalTerms)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].Term2.IsZero())
	assert.True(t, rows[0].FinalAverage.IsZero())
}

func TestAggregateMatchesTermNamesCaseInsensitively(t *testing.T) {
	rows := AggregateReportRows([]models.ScoredGrade{
		scored("math", "Matematica", "TRIMESTRE 3", "60", "10"),
		scored("math", "Matematica", "Recuperacion", "100", "10"),
	}, canonicalTerms)

	require.Len(t, rows, 1)
	assert.Equal(t, "60.00", rows[0].Term3.StringFixed(2))
	assert.Equal(t, "60.00", rows[0].Total.StringFixed(2))
	assert.Equal(t, "20.00", rows[0].FinalAverage.StringFixed(2))
}

func TestAggregateOneRowPerSubjectSortedByName(t *testing.T) {
	rows := AggregateReportRows([]models.ScoredGrade{
		scored("math", "Matematica", "Trimestre 1", "80", "100"),
		scored("lang", "Lenguaje", "Trimestre 1", "70", "100"),
		scored("art", "Artes", "Trimestre 2", "90", "100"),
		scored("math", "Matematica", "Trimestre 2", "60", "100"),
	}, canonicalTerms)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Artes", "Lenguaje", "Matematica"}, []string{rows[0].SubjectName, rows[1].SubjectName, rows[2].SubjectName})
	assert.Equal(t, "140.00", rows[2].Total.StringFixed(2))
}

func TestAggregateNoGradesNoRows(t *testing.T) {
	assert.Empty(t, AggregateReportRows(nil, canonicalTerms))
}

type reportFixture struct {
	svc   *ReportCardService
	db    *memDB
	cache *memCache
}

func newReportFixture(renderer documentRenderer) reportFixture {
	db := newMemDB()
	db.seedSchool()
	db.addActivity("exam", "math", "t1", "60", nil)
	db.addActivity("tasks", "math", "t1", "40", nil)
	db.addActivity("t2-exam", "math", "t2", "100", nil)
	db.addActivity("t3-exam", "math", "t3", "50", nil)
	db.addGrade("stu-1", "exam", "80")
	db.addGrade("stu-1", "tasks", "100")
	db.addGrade("stu-1", "t2-exam", "90")
	db.addGrade("stu-1", "t3-exam", "79")

	mc := newMemCache()
	svc := NewReportCardService(fakeGradeRepo{db: db}, fakeStudentRepo{db: db}, fakeSectionRepo{db: db},
		NewCacheService(mc, NewMetricsService(), time.Minute, nil, true), NewMetricsService(),
		renderer, nil, ReportCardOptions{SchoolName: "Colegio Gabus", CanonicalTerms: canonicalTerms}, nil)
	return reportFixture{svc: svc, db: db, cache: mc}
}

func TestBuildReportRowsFromStore(t *testing.T) {
	f := newReportFixture(nil)

	rows, err := f.svc.BuildReportRows(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Matematica", rows[0].SubjectName)
	assert.Equal(t, "85.67", rows[0].FinalAverage.StringFixed(2))
	assert.Contains(t, f.cache.entries, reportCardKey("stu-1", 0, 0))
}

func TestBuildReportRowsServesCache(t *testing.T) {
	f := newReportFixture(nil)
	ctx := context.Background()

	_, err := f.svc.BuildReportRows(ctx, "stu-1")
	require.NoError(t, err)

	for id := range f.db.grades {
		delete(f.db.grades, id)
	}
	rows, err := f.svc.BuildReportRows(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "85.67", rows[0].FinalAverage.StringFixed(2))
}

// writeDuringRead runs write once, right after the wrapped read returns.
type writeDuringRead struct {
	inner scoredGradeReader
	write func()
	done  bool
}

func (r *writeDuringRead) ListScoredByStudent(ctx context.Context, studentID string) ([]models.ScoredGrade, error) {
	scoredRows, err := r.inner.ListScoredByStudent(ctx, studentID)
	if !r.done {
		r.done = true
		r.write()
	}
	return scoredRows, err
}

func TestBuildReportRowsDoesNotCacheRowsOverlappingAWrite(t *testing.T) {
	f := newReportFixture(nil)
	ctx := context.Background()
	cacheSvc := NewCacheService(f.cache, nil, time.Minute, nil, true)
	grades := NewGradeService(fakeGradeRepo{db: f.db}, fakeActivityRepo{db: f.db}, fakeSubjectRepo{db: f.db}, fakeStudentRepo{db: f.db}, fakeSectionRepo{db: f.db},
		cacheSvc, nil, nil, nil)
	reader := &writeDuringRead{inner: fakeGradeRepo{db: f.db}, write: func() {
		_, _, err := grades.Upsert(ctx, admin, UpsertGradeRequest{StudentID: "stu-1", ActivityID: "exam", Score: dec("40")})
		require.NoError(t, err)
	}}
	svc := NewReportCardService(reader, fakeStudentRepo{db: f.db}, fakeSectionRepo{db: f.db}, cacheSvc, nil, nil, nil,
		ReportCardOptions{CanonicalTerms: canonicalTerms}, nil)

	rows, err := svc.BuildReportRows(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "88.00", rows[0].Term1.StringFixed(2))

	// (40×60 + 100×40) / 100
	rows, err = svc.BuildReportRows(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "64.00", rows[0].Term1.StringFixed(2))
}

func TestActivityWriteRetiresCachedReports(t *testing.T) {
	f := newReportFixture(nil)
	ctx := context.Background()
	cacheSvc := NewCacheService(f.cache, nil, time.Minute, nil, true)

	_, err := f.svc.BuildReportRows(ctx, "stu-1")
	require.NoError(t, err)

	reportCardCache{cache: cacheSvc}.touchAll(ctx)
	f.db.grades = map[string]*models.Grade{}
	rows, err := f.svc.BuildReportRows(ctx, "stu-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBuildReportRowsIgnoresCacheFailure(t *testing.T) {
	f := newReportFixture(nil)
	f.cache.getErr = errBoom

	rows, err := f.svc.BuildReportRows(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBuildReportRowsUnknownStudent(t *testing.T) {
	f := newReportFixture(nil)

	_, err := f.svc.BuildReportRows(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)
}

func TestBuildReportRowsStudentWithoutGrades(t *testing.T) {
	f := newReportFixture(nil)

	rows, err := f.svc.BuildReportRows(context.Background(), "stu-2")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReportCardNamesStudentAndChecksOwnership(t *testing.T) {
	f := newReportFixture(nil)
	ctx := context.Background()

	card, err := f.svc.ReportCard(ctx, teacher1, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Perez Ana", card.StudentName)
	assert.Len(t, card.Rows, 1)

	_, err = f.svc.ReportCard(ctx, teacher2, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.ReportCard(ctx, admin, "stu-1")
	assert.NoError(t, err)
}

func TestRenderPDF(t *testing.T) {
	f := newReportFixture(nil)

	doc, err := f.svc.RenderPDF(context.Background(), admin, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "report-card-stu-1.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
}

func TestRenderCSV(t *testing.T) {
	f := newReportFixture(nil)

	doc, err := f.svc.RenderCSV(context.Background(), admin, "stu-1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(doc.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Materia,Trimestre 1,Trimestre 2,Trimestre 3,Total,Promedio final", lines[0])
	assert.Equal(t, "Matematica,88.00,90.00,79.00,257.00,85.67", lines[1])
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Document) ([]byte, error) {
	return nil, errBoom
}

func TestRenderFailure(t *testing.T) {
	f := newReportFixture(failingRenderer{})

	_, err := f.svc.RenderPDF(context.Background(), admin, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrReportRenderFailed)
}

func TestNewReportCardServiceFallsBackToDefaultTerms(t *testing.T) {
	svc := NewReportCardService(nil, nil, nil, nil, nil, nil, nil, ReportCardOptions{CanonicalTerms: []string{"only one"}}, nil)
	assert.Equal(t, canonicalTerms, svc.opts.CanonicalTerms)
}
