package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ events.Repository = (*EventRepository)(nil)

const eventColumns = `e.id, e.title, e.description, e.category, e.event_date, e.event_time, e.location,
       e.latitude, e.longitude, e.image_url, e.capacity, e.registered_count, e.organizer_id,
       e.attendee_ids, e.price, e.tags, e.requirements, e.status, e.created_at, e.updated_at,
       u.id, u.name, u.email, u.profile_picture`

const eventFrom = ` FROM events e LEFT JOIN users u ON u.id = e.organizer_id`

func (r *EventRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}

// Create inserts the event and appends it to the organizer's created list.
func (r *EventRepository) Create(ctx context.Context, event events.Event) (*events.Event, error) {
	run := func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO events (id, title, description, category, event_date, event_time, location, latitude, longitude,
                    image_url, capacity, organizer_id, price, tags, requirements, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			event.ID, event.Title, event.Description, event.Category, event.Date, event.Time, event.Location,
			event.Latitude, event.Longitude, event.ImageURL, event.Capacity, event.OrganizerID, event.Price,
			nonNil(event.Tags), event.Requirements, event.State,
		)
		if err != nil {
			if isConstraint(err, codeForeignKeyViolation, constraintEventsOrganizerUser) {
				return events.ErrNotAuthorized
			}
			return fmt.Errorf("insert event: %w", err)
		}
		_, err = tx.Exec(ctx, `
UPDATE users
   SET events_created = array_append(events_created, $2), updated_at = now()
 WHERE id = $1 AND NOT ($2 = ANY (events_created))`, event.OrganizerID, event.ID)
		if err != nil {
			return fmt.Errorf("link organizer: %w", err)
		}
		return nil
	}

	var err error
	if r.tx != nil {
		err = classify(run(r.tx))
	} else {
		err = withTx(ctx, r.pool, pgx.TxOptions{}, run)
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, event.ID)
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+eventFrom+` WHERE e.id = $1`, id)
	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get event: %w", err))
	}
	return event, nil
}

// Update applies the patch in one statement. Lowering capacity below the
// seats already taken trips the capacity check constraint.
func (r *EventRepository) Update(ctx context.Context, id string, patch events.Patch) (*events.Event, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET title        = COALESCE($2::text, title),
       description  = COALESCE($3::text, description),
       category     = COALESCE($4::text, category),
       event_date   = COALESCE($5::date, event_date),
       event_time   = COALESCE($6::text, event_time),
       location     = COALESCE($7::text, location),
       latitude     = COALESCE($8::double precision, latitude),
       longitude    = COALESCE($9::double precision, longitude),
       image_url    = COALESCE($10::text, image_url),
       capacity     = COALESCE($11::integer, capacity),
       price        = COALESCE($12::numeric, price),
       tags         = CASE WHEN $13::boolean THEN $14::text[] ELSE tags END,
       requirements = COALESCE($15::text, requirements),
       status       = COALESCE($16::text, status),
       updated_at   = now()
 WHERE id = $1`,
		id, patch.Title, patch.Description, patch.Category, patch.Date, patch.Time, patch.Location,
		patch.Latitude, patch.Longitude, patch.ImageURL, patch.Capacity, patch.Price,
		patch.TagsSet, nonNil(patch.Tags), patch.Requirements, patch.State,
	)
	if err != nil {
		if isConstraint(err, codeCheckViolation, constraintWithinCapacity) {
			return nil, events.ErrCapacityBelowRegistered
		}
		return nil, classify(fmt.Errorf("update event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, events.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters, page pagination.Page) (events.ListResult, error) {
	clause, args := eventWhere(filters)

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER ()%s%s ORDER BY e.event_date ASC, e.id ASC LIMIT $%d OFFSET $%d`,
		eventColumns, eventFrom, clause, len(args)+1, len(args)+2)
	rows, err := r.queryer().Query(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return events.ListResult{}, classify(fmt.Errorf("list events: %w", err))
	}
	defer rows.Close()

	result := events.ListResult{Events: []events.Event{}}
	for rows.Next() {
		var total int
		event, err := scanEvent(rows, &total)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		result.Total = total
		result.Events = append(result.Events, *event)
	}
	if err := rows.Err(); err != nil {
		return events.ListResult{}, classify(fmt.Errorf("list events: %w", err))
	}

	if len(result.Events) == 0 && page.Offset() > 0 {
		if err := r.queryer().QueryRow(ctx, `SELECT COUNT(*) FROM events e`+clause, args...).Scan(&result.Total); err != nil {
			return events.ListResult{}, classify(fmt.Errorf("count events: %w", err))
		}
	}
	return result, nil
}

func eventWhere(filters events.Filters) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	switch filters.When {
	case events.WhenUpcoming:
		add("e.event_date >= $%d::date", filters.Today)
	case events.WhenPast:
		add("e.event_date < $%d::date", filters.Today)
	}
	if filters.Category != "" {
		add("e.category = $%d", filters.Category)
	}
	if filters.State != "" {
		add("e.status = $%d", filters.State)
	}
	if filters.OrganizerID != "" {
		add("e.organizer_id = $%d", filters.OrganizerID)
	}
	if filters.DateFrom != nil {
		add("e.event_date >= $%d::date", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		add("e.event_date <= $%d::date", *filters.DateTo)
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// Search ranks by relevance, title matches weighing more than description.
func (r *EventRepository) Search(ctx context.Context, query string, limit int) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+eventColumns+eventFrom+`,
       websearch_to_tsquery('english', $1) AS q
 WHERE e.search_vector @@ q
 ORDER BY ts_rank(e.search_vector, q) DESC, e.event_date ASC, e.id ASC
 LIMIT $2`, query, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("search events: %w", err))
	}
	defer rows.Close()

	found := []events.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		found = append(found, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("search events: %w", err))
	}
	return found, nil
}

func scanEvent(row pgx.Row, extra ...any) (*events.Event, error) {
	var (
		event                              events.Event
		orgID, orgName, orgEmail, orgImage *string
	)
	dest := []any{
		&event.ID, &event.Title, &event.Description, &event.Category, &event.Date, &event.Time, &event.Location,
		&event.Latitude, &event.Longitude, &event.ImageURL, &event.Capacity, &event.RegisteredCount, &event.OrganizerID,
		&event.AttendeeIDs, &event.Price, &event.Tags, &event.Requirements, &event.State, &event.CreatedAt, &event.UpdatedAt,
		&orgID, &orgName, &orgEmail, &orgImage,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if orgID != nil {
		event.Organizer = &events.Organizer{
			ID:             *orgID,
			Name:           deref(orgName),
			Email:          deref(orgEmail),
			ProfilePicture: deref(orgImage),
		}
	}
	return &event, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
