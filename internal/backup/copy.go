package backup

import (
	"context"
	"fmt"

	"teachereval/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type copier func(ctx context.Context, src, dst *gorm.DB) (int, error)

// tables copies every model, parents first, so foreign keys hold on insert.
var tables = []copier{
	copyTable[models.Course],
	copyTable[models.Discipline],
	copyTable[models.Teacher],
	copyTable[models.Semester],
	copyTable[models.SchoolYear],
	copyTable[models.ClassGroup],
	copyTable[models.Teaching],
	copyTable[models.SurveyQuestion],
	copyTable[models.SurveyResponse],
	copyTable[models.SurveyAnswer],
}

func copyAll(ctx context.Context, src, dst *gorm.DB) error {
	for _, fn := range tables {
		if _, err := fn(ctx, src, dst); err != nil {
			return err
		}
	}
	return nil
}

// copyTable moves all rows of T from src to dst in primary key order, keeping IDs.
func copyTable[T any](ctx context.Context, src, dst *gorm.DB) (int, error) {
	var batch []T
	total := 0
	res := src.WithContext(ctx).FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		if err := dst.WithContext(ctx).Omit(clause.Associations).Create(&batch).Error; err != nil {
			return err
		}
		total += len(batch)
		return nil
	})
	if res.Error != nil {
		var zero T
		return total, fmt.Errorf("copy %T: %w", zero, res.Error)
	}
	return total, nil
}

// resetSequences moves every postgres id sequence past the highest restored id.
// Rows are copied with their ids, which does not advance serial sequences.
func resetSequences(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	tables, err := tableNames(tx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := tx.Exec(sequenceSQL(table)).Error; err != nil {
			return fmt.Errorf("reset sequence of %s: %w", table, err)
		}
	}
	return nil
}

func tableNames(db *gorm.DB) ([]string, error) {
	all := models.All()
	names := make([]string, 0, len(all))
	for _, m := range all {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse %T: %w", m, err)
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}

// sequenceSQL sets the sequence so the next id is MAX(id)+1, or 1 on an empty table.
func sequenceSQL(table string) string {
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM %[1]s",
		table,
	)
}
