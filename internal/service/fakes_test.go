package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
)

// memDB backs the fake repositories of the service tests.
type memDB struct {
	seq        int
	activities map[string]*models.Activity
	grades     map[string]*models.Grade
	subjects   map[string]*models.Subject
	terms      map[string]*models.Term
	students   map[string]*models.Student
	sections   map[string]*models.Section
	locks      []string
	txCount    int
	failSum    error
}

func newMemDB() *memDB {
	return &memDB{
		activities: map[string]*models.Activity{},
		grades:     map[string]*models.Grade{},
		subjects:   map[string]*models.Subject{},
		terms:      map[string]*models.Term{},
		students:   map[string]*models.Student{},
		sections:   map[string]*models.Section{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

// seedSchool creates subject "math" owned by teacher-1, the three canonical terms,
// section "sec-1" owned by teacher-1 and student "stu-1" in it.
func (db *memDB) seedSchool() {
	db.subjects["math"] = &models.Subject{ID: "math", Name: "Matematica", TeacherID: strPtr("teacher-1")}
	db.subjects["lang"] = &models.Subject{ID: "lang", Name: "Lenguaje", TeacherID: strPtr("teacher-2")}
	db.terms["t1"] = &models.Term{ID: "t1", Name: "Trimestre 1"}
	db.terms["t2"] = &models.Term{ID: "t2", Name: "Trimestre 2"}
	db.terms["t3"] = &models.Term{ID: "t3", Name: "Trimestre 3"}
	db.sections["sec-1"] = &models.Section{ID: "sec-1", Level: "7", Section: "A", TeacherID: strPtr("teacher-1")}
	db.students["stu-1"] = &models.Student{ID: "stu-1", FirstNames: "Ana", LastNames: "Perez", SectionID: "sec-1"}
	db.students["stu-2"] = &models.Student{ID: "stu-2", FirstNames: "Luis", LastNames: "Soto", SectionID: "sec-1"}
}

func (db *memDB) addActivity(id, subjectID, termID, weight string, parentID *string) *models.Activity {
	a := &models.Activity{ID: id, Name: id, Weight: dec(weight), SubjectID: subjectID, TermID: termID, ParentID: parentID}
	db.activities[id] = a
	return a
}

func (db *memDB) addGrade(studentID, activityID, score string) *models.Grade {
	g := &models.Grade{ID: db.nextID("grade"), StudentID: studentID, ActivityID: activityID, Score: dec(score)}
	db.grades[g.ID] = g
	return g
}

type fakeTx struct{ db *memDB }

func (t fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.db.txCount++
	return fn(ctx)
}

type fakeActivityRepo struct{ db *memDB }

func (r fakeActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	a, ok := r.db.activities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (r fakeActivityRepo) SumRootWeights(ctx context.Context, subjectID, termID, excludeID string) (decimal.Decimal, error) {
	if r.db.failSum != nil {
		return decimal.Zero, r.db.failSum
	}
	sum := decimal.Zero
	for _, a := range r.db.activities {
		if a.IsRoot() && a.SubjectID == subjectID && a.TermID == termID && a.ID != excludeID {
			sum = sum.Add(a.Weight)
		}
	}
	return sum, nil
}

func (r fakeActivityRepo) SumChildWeights(ctx context.Context, parentID, excludeID string) (decimal.Decimal, error) {
	if r.db.failSum != nil {
		return decimal.Zero, r.db.failSum
	}
	sum := decimal.Zero
	for _, a := range r.db.activities {
		if !a.IsRoot() && *a.ParentID == parentID && a.ID != excludeID {
			sum = sum.Add(a.Weight)
		}
	}
	return sum, nil
}

func (r fakeActivityRepo) ListBySubjectTerm(ctx context.Context, subjectID, termID string) ([]models.Activity, error) {
	var out []models.Activity
	for _, a := range r.db.activities {
		if a.SubjectID == subjectID && a.TermID == termID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeActivityRepo) ExistsByName(ctx context.Context, subjectID, termID, name, excludeID string) (bool, error) {
	for _, a := range r.db.activities {
		if a.SubjectID == subjectID && a.TermID == termID && a.Name == name && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = r.db.nextID("act")
	}
	activity.CreatedAt = time.Now().UTC()
	clone := *activity
	r.db.activities[activity.ID] = &clone
	return nil
}

func (r fakeActivityRepo) Update(ctx context.Context, activity *models.Activity) error {
	if _, ok := r.db.activities[activity.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *activity
	r.db.activities[activity.ID] = &clone
	return nil
}

func (r fakeActivityRepo) SubtreeIDs(ctx context.Context, id string) ([]string, error) {
	if _, ok := r.db.activities[id]; !ok {
		return nil, nil
	}
	ids := []string{id}
	for i := 0; i < len(ids); i++ {
		var children []string
		for _, a := range r.db.activities {
			if !a.IsRoot() && *a.ParentID == ids[i] {
				children = append(children, a.ID)
			}
		}
		sort.Strings(children)
		ids = append(ids, children...)
	}
	return ids, nil
}

func (r fakeActivityRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.db.activities[id]; ok {
			delete(r.db.activities, id)
			n++
		}
	}
	return n, nil
}

func (r fakeActivityRepo) LockScopes(ctx context.Context, keys ...string) error {
	r.db.locks = append(r.db.locks, keys...)
	return nil
}

type fakeGradeRepo struct {
	db        *memDB
	createErr error
}

func (r fakeGradeRepo) FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Grade, error) {
	for _, g := range r.db.grades {
		if g.StudentID == studentID && g.ActivityID == activityID {
			clone := *g
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r fakeGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, g := range r.db.grades {
		if g.StudentID == grade.StudentID && g.ActivityID == grade.ActivityID {
			return fmt.Errorf("create grade: %w", &pq.Error{Code: "23505"})
		}
	}
	grade.ID = r.db.nextID("grade")
	clone := *grade
	r.db.grades[grade.ID] = &clone
	return nil
}

func (r fakeGradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	clone := *grade
	r.db.grades[grade.ID] = &clone
	return nil
}

func (r fakeGradeRepo) ListByActivity(ctx context.Context, activityID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, g := range r.db.grades {
		if g.ActivityID == activityID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r fakeGradeRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, g := range r.db.grades {
		if g.StudentID == studentID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r fakeGradeRepo) ListSheet(ctx context.Context, sectionID, activityID string) ([]models.GradeSheetRow, error) {
	var out []models.GradeSheetRow
	for _, st := range r.db.students {
		if st.SectionID != sectionID {
			continue
		}
		row := models.GradeSheetRow{StudentID: st.ID, FirstNames: st.FirstNames, LastNames: st.LastNames}
		for _, g := range r.db.grades {
			if g.StudentID == st.ID && g.ActivityID == activityID {
				row.GradeID = strPtr(g.ID)
				row.Score = decimal.NewNullDecimal(g.Score)
				row.Remark = g.Remark
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].LastNames, out[j].LastNames) < 0 })
	return out, nil
}

func (r fakeGradeRepo) DeleteByActivities(ctx context.Context, activityIDs []string) (int64, error) {
	set := map[string]bool{}
	for _, id := range activityIDs {
		set[id] = true
	}
	var n int64
	for id, g := range r.db.grades {
		if set[g.ActivityID] {
			delete(r.db.grades, id)
			n++
		}
	}
	return n, nil
}

func (r fakeGradeRepo) ListScoredByStudent(ctx context.Context, studentID string) ([]models.ScoredGrade, error) {
	var out []models.ScoredGrade
	for _, g := range r.db.grades {
		if g.StudentID != studentID {
			continue
		}
		a := r.db.activities[g.ActivityID]
		out = append(out, models.ScoredGrade{
			GradeID:     g.ID,
			Score:       g.Score,
			Weight:      a.Weight,
			TermName:    r.db.terms[a.TermID].Name,
			SubjectID:   a.SubjectID,
			SubjectName: r.db.subjects[a.SubjectID].Name,
		})
	}
	return out, nil
}

type fakeSubjectRepo struct{ db *memDB }

func (r fakeSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := r.db.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeTermRepo struct{ db *memDB }

func (r fakeTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := r.db.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type fakeStudentRepo struct {
	db  *memDB
	err error
}

func (r fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if r.err != nil {
		return nil, r.err
	}
	if s, ok := r.db.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeSectionRepo struct{ db *memDB }

func (r fakeSectionRepo) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if s, ok := r.db.sections[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

// memCache is an in-memory CacheRepository.
type memCache struct {
	entries map[string][]byte
	getErr  error
	incrErr error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Incr(ctx context.Context, key string) (int64, error) {
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	var n int64
	if raw, ok := c.entries[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	c.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

var errBoom = errors.New("boom")

var (
	admin    = models.Principal{ID: "admin-1", Role: models.RoleAdmin}
	teacher1 = models.Principal{ID: "teacher-1", Role: models.RoleTeacher}
	teacher2 = models.Principal{ID: "teacher-2", Role: models.RoleTeacher}
)
