package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied idempotently at start-up. Weights and scores are NUMERIC(5,2) so the
// store keeps the same two-decimal precision the services enforce.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id UUID PRIMARY KEY,
        username TEXT NOT NULL UNIQUE,
        first_name TEXT NOT NULL,
        last_name TEXT NOT NULL,
        role TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS subjects (
        id UUID PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        description TEXT,
        teacher_id UUID REFERENCES users(id) ON DELETE SET NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS terms (
        id UUID PRIMARY KEY,
        name TEXT NOT NULL,
        school_year INT NOT NULL,
        start_date DATE NOT NULL,
        end_date DATE NOT NULL,
        active BOOLEAN NOT NULL DEFAULT TRUE,
        UNIQUE (name, school_year)
    )`,
	`CREATE TABLE IF NOT EXISTS sections (
        id UUID PRIMARY KEY,
        level TEXT NOT NULL,
        section TEXT NOT NULL,
        school_year INT NOT NULL,
        teacher_id UUID REFERENCES users(id) ON DELETE SET NULL,
        UNIQUE (level, section)
    )`,
	`CREATE TABLE IF NOT EXISTS students (
        id UUID PRIMARY KEY,
        first_names TEXT NOT NULL,
        last_names TEXT NOT NULL,
        email TEXT UNIQUE,
        progress_code VARCHAR(8) NOT NULL UNIQUE,
        section_id UUID NOT NULL REFERENCES sections(id),
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS activities (
        id UUID PRIMARY KEY,
        name VARCHAR(150) NOT NULL,
        description TEXT,
        weight NUMERIC(5,2) NOT NULL CHECK (weight >= 0),
        scheduled_on DATE,
        averages_children BOOLEAN NOT NULL DEFAULT FALSE,
        subject_id UUID NOT NULL REFERENCES subjects(id),
        term_id UUID NOT NULL REFERENCES terms(id),
        parent_id UUID REFERENCES activities(id) ON DELETE CASCADE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (name, subject_id, term_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_activities_scope ON activities (subject_id, term_id) WHERE parent_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_activities_parent ON activities (parent_id)`,
	`CREATE TABLE IF NOT EXISTS grades (
        id UUID PRIMARY KEY,
        student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
        activity_id UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
        score NUMERIC(5,2) NOT NULL CHECK (score >= 0),
        remark TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (student_id, activity_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_grades_student ON grades (student_id)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
