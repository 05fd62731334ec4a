package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestFindByMalformedIDIsNotFound(t *testing.T) {
	const id = "not-a-uuid"
	malformed := &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`}
	cases := []struct {
		name string
		find func(ctx context.Context, db *sqlx.DB) error
	}{
		{"activity", func(ctx context.Context, db *sqlx.DB) error {
			_, err := NewActivityRepository(db).FindByID(ctx, id)
			return err
		}},
		{"subject", func(ctx context.Context, db *sqlx.DB) error {
			_, err := NewSubjectRepository(db).FindByID(ctx, id)
			return err
		}},
		{"term", func(ctx context.Context, db *sqlx.DB) error {
			_, err := NewTermRepository(db).FindByID(ctx, id)
			return err
		}},
		{"student", func(ctx context.Context, db *sqlx.DB) error {
			_, err := NewStudentRepository(db).FindByID(ctx, id)
			return err
		}},
		{"section", func(ctx context.Context, db *sqlx.DB) error {
			_, err := NewSectionRepository(db).FindByID(ctx, id)
			return err
		}},
		{"grade", func(ctx context.Context, db *sqlx.DB) error {
			_, err := NewGradeRepository(db).FindByStudentAndActivity(ctx, id, "a1")
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newMockDB(t)
			defer cleanup()
			mock.ExpectQuery("SELECT").WillReturnError(malformed)

			assert.ErrorIs(t, tc.find(context.Background(), db), sql.ErrNoRows)
		})
	}
}

func TestFindByIDKeepsOtherErrors(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	_, err := NewStudentRepository(db).FindByID(context.Background(), "s1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
