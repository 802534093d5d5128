package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lexvault/internal/models"
)

const fileColumns = "id, original_name, mime_type, size_bytes, hash, uploaded_at, uploaded_by, case_id, order_id, description"

// dbTimeLayout is fixed width so that text comparison orders timestamps.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z"

// PutFile upserts one record and replaces its tags in one transaction.
func (s *SQLiteStore) PutFile(ctx context.Context, meta *models.FileMetadata) (err error) {
	if err := ValidateRecord(meta); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			original_name = excluded.original_name,
			mime_type = excluded.mime_type,
			size_bytes = excluded.size_bytes,
			hash = excluded.hash,
			uploaded_at = excluded.uploaded_at,
			uploaded_by = excluded.uploaded_by,
			case_id = excluded.case_id,
			order_id = excluded.order_id,
			description = excluded.description
	`,
		meta.ID,
		meta.OriginalName,
		meta.MimeType,
		meta.Size,
		meta.Hash,
		dbFormatTime(meta.UploadedAt),
		meta.UploadedBy,
		nullIfEmpty(strings.TrimSpace(meta.CaseID)),
		nullIfEmpty(strings.TrimSpace(meta.OrderID)),
		nullIfEmpty(strings.TrimSpace(meta.Description)),
	)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM file_tags WHERE file_id = ?", meta.ID); err != nil {
		return err
	}
	if len(meta.Tags) > 0 {
		if _, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO file_tags (file_id, tag) VALUES "+tagValues(len(meta.Tags)), tagArgs(meta.ID, meta.Tags)...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetFile returns one record with tags.
func (s *SQLiteStore) GetFile(ctx context.Context, id string) (*models.FileMetadata, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	meta, err := scanFile(row)
	if err != nil || meta == nil {
		return meta, err
	}
	files := []models.FileMetadata{*meta}
	if err := s.attachTags(ctx, files); err != nil {
		return nil, err
	}
	return &files[0], nil
}

// DeleteFile deletes one record; tags cascade.
func (s *SQLiteStore) DeleteFile(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFiles pushes the filter down into SQL.
func (s *SQLiteStore) ListFiles(ctx context.Context, filter models.FileFilter) ([]models.FileMetadata, error) {
	where := []string{}
	args := []any{}

	if filter.CaseID != "" {
		where = append(where, "case_id = ?")
		args = append(args, filter.CaseID)
	}
	if filter.OrderID != "" {
		where = append(where, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.UploadedBy != "" {
		where = append(where, "uploaded_by = ?")
		args = append(args, filter.UploadedBy)
	}
	if filter.MimeType != "" {
		where = append(where, "mime_type = ?")
		args = append(args, models.NormalizeMimeType(filter.MimeType))
	}
	if tags := models.NormalizeTags(filter.Tags); len(tags) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM file_tags t WHERE t.file_id = files.id AND t.tag IN ("+placeholders(len(tags))+"))")
		for _, tag := range tags {
			args = append(args, tag)
		}
	}
	if filter.DateFrom != nil {
		where = append(where, "uploaded_at >= ?")
		args = append(args, dbFormatTime(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "uploaded_at <= ?")
		args = append(args, dbFormatTime(*filter.DateTo))
	}

	query := `SELECT ` + fileColumns + ` FROM files`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY uploaded_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return s.queryFiles(ctx, query, args...)
}

// ListFilesByHash uses the hash index.
func (s *SQLiteStore) ListFilesByHash(ctx context.Context, hash string) ([]models.FileMetadata, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	return s.queryFiles(ctx, `SELECT `+fileColumns+` FROM files WHERE hash = ? ORDER BY uploaded_at ASC, id ASC`, hash)
}

func (s *SQLiteStore) queryFiles(ctx context.Context, query string, args ...any) ([]models.FileMetadata, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.FileMetadata{}
	for rows.Next() {
		meta, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			files = append(files, *meta)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, files); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *SQLiteStore) attachTags(ctx context.Context, files []models.FileMetadata) error {
	if len(files) == 0 {
		return nil
	}
	index := make(map[string]int, len(files))
	ids := make([]any, 0, len(files))
	for i := range files {
		index[files[i].ID] = i
		ids = append(ids, files[i].ID)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT file_id, tag FROM file_tags WHERE file_id IN ("+placeholders(len(ids))+") ORDER BY tag ASC", ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var fileID, tag string
		if err := rows.Scan(&fileID, &tag); err != nil {
			return err
		}
		if i, ok := index[fileID]; ok {
			files[i].Tags = append(files[i].Tags, tag)
		}
	}
	return rows.Err()
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.FileMetadata, error) {
	meta := models.FileMetadata{}
	var uploadedAt string
	var caseID, orderID, description sql.NullString

	err := scanner.Scan(
		&meta.ID,
		&meta.OriginalName,
		&meta.MimeType,
		&meta.Size,
		&meta.Hash,
		&uploadedAt,
		&meta.UploadedBy,
		&caseID,
		&orderID,
		&description,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := dbParseTime(uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse uploaded_at for %s: %w", meta.ID, err)
	}
	meta.UploadedAt = parsed
	meta.CaseID = caseID.String
	meta.OrderID = orderID.String
	meta.Description = description.String
	return &meta, nil
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func dbParseTime(value string) (time.Time, error) {
	return time.Parse(dbTimeLayout, value)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func tagValues(count int) string {
	values := make([]string, count)
	for i := 0; i < count; i++ {
		values[i] = "(?, ?)"
	}
	return strings.Join(values, ",")
}

func tagArgs(id string, tags []string) []any {
	args := make([]any, 0, len(tags)*2)
	for _, tag := range tags {
		args = append(args, id, tag)
	}
	return args
}
