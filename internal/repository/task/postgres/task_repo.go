package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"
	"todoTracker/internal/repository/pgdb"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

const selectColumns = `uuid,
				title,
				done,
				due_date,
				remind_offset_minutes,
				repeat_kind,
				owner_id,
				category_id,
				tag_ids,
				notified_at,
				created_at,
				updated_at,
				version`

type Storage struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer pgdb.WarnIfSlow("create", start, slowQuery)

	query := `INSERT INTO todos
				(uuid, title, done, due_date, remind_offset_minutes, repeat_kind, owner_id, category_id, tag_ids, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
				RETURNING created_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.UUID,
		taskToCreate.Title,
		taskToCreate.Done,
		taskToCreate.DueDate,
		taskToCreate.RemindOffsetMinutes,
		string(taskToCreate.RepeatKind),
		taskToCreate.OwnerID,
		taskToCreate.CategoryID,
		uuidsToStrings(taskToCreate.TagIDs),
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.Version)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repo.ErrConflict
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

// Update сохраняет задачу с проверкой версии. notified_at из taskToUpdate игнорируется:
// база сбрасывает его сама, если изменились срок или смещение напоминания.
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer pgdb.WarnIfSlow("update", start, slowQuery)

	query := `UPDATE todos
			SET title = $1,
				done = $2,
				due_date = $3::timestamptz,
				remind_offset_minutes = $4::integer,
				repeat_kind = $5,
				category_id = $6,
				tag_ids = $7,
				notified_at = CASE
					WHEN due_date IS DISTINCT FROM $3::timestamptz
						OR remind_offset_minutes IS DISTINCT FROM $4::integer
					THEN NULL
					ELSE notified_at
				END,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $8 AND version = $9
			RETURNING updated_at, version, notified_at`

	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Done,
		taskToUpdate.DueDate,
		taskToUpdate.RemindOffsetMinutes,
		string(taskToUpdate.RepeatKind),
		taskToUpdate.CategoryID,
		uuidsToStrings(taskToUpdate.TagIDs),
		taskToUpdate.UUID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version, &taskToUpdate.NotifiedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := s.exists(ctx, taskToUpdate.UUID)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return repo.ErrNotFound
			}
			logger.Warn("Конфликт версий при обновлении задачи",
				logger.TaskID(taskToUpdate.UUID),
				zap.Int("expected_version", taskToUpdate.Version))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

func (s *Storage) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM todos WHERE uuid = $1)`, id).Scan(&exists)
	if err != nil {
		logger.Error("Repository: Не удалось проверить наличие задачи", err)
		return false, fmt.Errorf("проверка наличия задачи: %w", err)
	}
	return exists, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer pgdb.WarnIfSlow("delete", start, slowQuery)

	tag, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE uuid = $1`, id)
	if err != nil {
		logger.Error("Repository: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer pgdb.WarnIfSlow("get_by_id", start, slowQuery)

	query := `SELECT ` + selectColumns + ` FROM todos WHERE uuid = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// GetByIDs возвращает найденные задачи, отсутствующие id пропускаются
func (s *Storage) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*task.Task, error) {
	if len(ids) == 0 {
		return []*task.Task{}, nil
	}
	start := time.Now()
	defer pgdb.WarnIfSlow("get_by_ids", start, slowQuery)

	query := `SELECT ` + selectColumns + ` FROM todos
				WHERE uuid = ANY($1::uuid[])
				ORDER BY due_date ASC NULLS LAST`

	return s.queryTasks(ctx, query, uuidsToStrings(ids))
}

// List собирает WHERE из заполненных полей фильтра
func (s *Storage) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()
	defer pgdb.WarnIfSlow("list", start, slowQuery)

	filter = filter.Normalized()

	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.OwnerID != nil {
		add("owner_id = $%d", *filter.OwnerID)
	}
	if filter.Keyword != "" {
		add("title ILIKE '%%' || $%d || '%%'", escapeLike(filter.Keyword))
	}
	if filter.Done != nil {
		add("done = $%d", *filter.Done)
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if len(filter.TagIDs) > 0 {
		add("tag_ids && $%d::text[]", uuidsToStrings(filter.TagIDs))
	}

	query := `SELECT ` + selectColumns + ` FROM todos`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Size, filter.Offset())
	query += fmt.Sprintf(" ORDER BY due_date ASC NULLS LAST, created_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return s.queryTasks(ctx, query, args...)
}

// FindDueForNotification: окно открыто (due_date - offset <= now) и notified_at не проставлен.
// Просроченные задачи тоже попадают в выборку.
func (s *Storage) FindDueForNotification(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	start := time.Now()
	defer pgdb.WarnIfSlow("find_due", start, slowQuery)

	query := `SELECT uuid FROM todos
				WHERE notified_at IS NULL
					AND due_date IS NOT NULL
					AND remind_offset_minutes IS NOT NULL
					AND remind_offset_minutes > 0
					AND due_date - make_interval(mins => remind_offset_minutes) <= $1
				ORDER BY due_date ASC
				LIMIT $2`

	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		logger.Error("Repository: Не удалось выбрать задачи для напоминания", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("выборка напоминаний: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return ids, nil
}

// MarkNotified - один условный UPDATE: строка, уже получившая notified_at, не перезаписывается,
// а строка с закрытым на $2 окном (срок или смещение изменили после выборки) не отмечается.
// Возвращает число реально изменённых строк.
func (s *Storage) MarkNotified(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer pgdb.WarnIfSlow("mark_notified", start, slowQuery)

	query := `UPDATE todos
				SET notified_at = $2
				WHERE uuid = ANY($1::uuid[])
					AND notified_at IS NULL
					AND due_date IS NOT NULL
					AND remind_offset_minutes > 0
					AND due_date - make_interval(mins => remind_offset_minutes) <= $2`

	tag, err := s.pool.Exec(ctx, query, uuidsToStrings(ids), now)
	if err != nil {
		logger.Error("Repository: Не удалось отметить напоминания", err, zap.Int("count", len(ids)))
		return 0, fmt.Errorf("отметка напоминаний: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			// нечитаемая строка пропускается; планировщик считает её неуспешной по отсутствию в ответе
			logger.Error("Repository: Ошибка сканирования задачи", err)
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	var repeat string
	var tags []string

	err := row.Scan(
		&t.UUID,
		&t.Title,
		&t.Done,
		&t.DueDate,
		&t.RemindOffsetMinutes,
		&repeat,
		&t.OwnerID,
		&t.CategoryID,
		&tags,
		&t.NotifiedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}

	t.RepeatKind = task.RepeatKind(repeat)
	t.TagIDs = make([]uuid.UUID, 0, len(tags))
	for _, raw := range tags {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("некорректный tag id %q: %w", raw, err)
		}
		t.TagIDs = append(t.TagIDs, id)
	}
	return t, nil
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
