package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homecrate/homecrate/internal/ident"
	"github.com/homecrate/homecrate/internal/inventory"
)

// PostgresStore implements Store on PostgreSQL. Every mutating operation
// runs inside a single transaction; the unexported per-operation methods
// take the transaction as an explicit parameter so the scope of each
// mutation is visible at the call site.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a Store backed by the given pool. queryTimeout
// sets the per-operation context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

// storeErr wraps a database failure as a retryable StoreUnavailableError,
// passing already-typed domain errors through untouched.
func storeErr(op string, err error) error {
	var (
		ve *inventory.ValidationError
		nf *inventory.NotFoundError
		ce *inventory.ConflictError
	)
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ce) {
		return err
	}
	return &inventory.StoreUnavailableError{Op: op, Err: err}
}

// inTx runs fn inside one transaction with the configured timeout applied.
func (s *PostgresStore) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	}); err != nil {
		return storeErr(op, err)
	}
	return nil
}

const (
	locationColumns  = "uuid, name"
	containerColumns = "uuid, created, updated, name, location"
	itemColumns      = "uuid, created, updated, name, description, quantity, container"
)

func scanLocation(row pgx.Row) (*inventory.Location, error) {
	var l inventory.Location
	if err := row.Scan(&l.ID, &l.Name); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanContainer(row pgx.Row) (*inventory.Container, error) {
	var c inventory.Container
	if err := row.Scan(&c.ID, &c.Created, &c.Updated, &c.Name, &c.Location); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanItem(row pgx.Row) (*inventory.Item, error) {
	var i inventory.Item
	if err := row.Scan(&i.ID, &i.Created, &i.Updated, &i.Name, &i.Description, &i.Quantity, &i.Container); err != nil {
		return nil, err
	}
	return &i, nil
}

// --- Creates ---

func (s *PostgresStore) CreateLocation(ctx context.Context, p inventory.CreateLocationParams) (*inventory.Location, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	l, err := scanLocation(s.pool.QueryRow(ctx,
		`INSERT INTO locations (uuid, name) VALUES ($1, $2) RETURNING `+locationColumns,
		ident.New(), p.Name,
	))
	if err != nil {
		return nil, storeErr("create location", err)
	}
	return l, nil
}

func (s *PostgresStore) CreateContainer(ctx context.Context, p inventory.CreateContainerParams) (*inventory.Container, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var c *inventory.Container
	err := s.inTx(ctx, "create container", func(ctx context.Context, tx pgx.Tx) error {
		if p.Location != nil {
			if err := requireLocation(ctx, tx, *p.Location); err != nil {
				return err
			}
		}
		var err error
		c, err = scanContainer(tx.QueryRow(ctx,
			`INSERT INTO containers (uuid, name, location) VALUES ($1, $2, $3) RETURNING `+containerColumns,
			ident.New(), p.Name, p.Location,
		))
		return err
	})
	if err != nil {
		if isFKViolation(err) && p.Location != nil {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: *p.Location}
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CreateItem(ctx context.Context, p inventory.CreateItemParams) (*inventory.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var i *inventory.Item
	err := s.inTx(ctx, "create item", func(ctx context.Context, tx pgx.Tx) error {
		if err := requireContainer(ctx, tx, p.Container); err != nil {
			return err
		}
		var err error
		i, err = scanItem(tx.QueryRow(ctx,
			`INSERT INTO items (uuid, name, description, quantity, container)
			 VALUES ($1, $2, $3, $4, $5) RETURNING `+itemColumns,
			ident.New(), p.Name, p.Description, p.Quantity, p.Container,
		))
		return err
	})
	if err != nil {
		if isFKViolation(err) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: p.Container}
		}
		return nil, err
	}
	return i, nil
}

// requireLocation verifies a foreign key target inside the transaction that
// will write the reference. The DDL-level constraint is the backstop for
// races this check cannot see.
func requireLocation(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE uuid = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
	}
	return nil
}

func requireContainer(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM containers WHERE uuid = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
	}
	return nil
}

// --- Reads ---

func (s *PostgresStore) GetLocation(ctx context.Context, id uuid.UUID) (*inventory.Location, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	l, err := scanLocation(s.pool.QueryRow(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE uuid = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
		}
		return nil, storeErr("get location", err)
	}
	return l, nil
}

func (s *PostgresStore) GetContainer(ctx context.Context, id uuid.UUID) (*inventory.Container, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := scanContainer(s.pool.QueryRow(ctx,
		`SELECT `+containerColumns+` FROM containers WHERE uuid = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
		}
		return nil, storeErr("get container", err)
	}
	return c, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	i, err := scanItem(s.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE uuid = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
		}
		return nil, storeErr("get item", err)
	}
	return i, nil
}

func (s *PostgresStore) ResolveKind(ctx context.Context, id uuid.UUID) (inventory.Kind, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var kind inventory.Kind
	err := s.pool.QueryRow(ctx, `
		SELECT kind FROM (
			          SELECT 'location'  AS kind, 1 AS rank FROM locations  WHERE uuid = $1
			UNION ALL SELECT 'container' AS kind, 2 AS rank FROM containers WHERE uuid = $1
			UNION ALL SELECT 'item'      AS kind, 3 AS rank FROM items      WHERE uuid = $1
		) matches ORDER BY rank LIMIT 1
	`, id).Scan(&kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &inventory.NotFoundError{Kind: "entity", ID: id}
		}
		return "", storeErr("resolve kind", err)
	}
	return kind, nil
}

// --- Listings ---

func listLimit(opts ListOptions) int {
	if opts.Limit <= 0 {
		return defaultListLimit
	}
	return opts.Limit
}

func (s *PostgresStore) ListLocations(ctx context.Context, opts ListOptions) (*Page[inventory.Location], error) {
	limit := listLimit(opts)
	afterName, afterID := "", uuid.Nil
	if opts.Cursor != "" {
		cur, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		afterName, afterID = cur.Name, cur.ID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Locations carry no timestamps, so they page on (name, uuid) instead
	// of creation order.
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE (name, uuid) > ($1, $2)
		ORDER BY name, uuid
		LIMIT $3
	`, afterName, afterID, limit)
	if err != nil {
		return nil, storeErr("list locations", err)
	}
	defer rows.Close()

	page := &Page[inventory.Location]{}
	for rows.Next() {
		var l inventory.Location
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, storeErr("list locations", err)
		}
		page.Entities = append(page.Entities, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list locations", err)
	}

	if len(page.Entities) == limit {
		last := page.Entities[len(page.Entities)-1]
		page.NextCursor = (&Cursor{Name: last.Name, ID: last.ID}).Encode()
		page.HasMore = true
	}
	return page, nil
}

func (s *PostgresStore) ListContainers(ctx context.Context, filter ContainerFilter, opts ListOptions) (*Page[inventory.Container], error) {
	if filter.Location != nil && filter.Unassigned {
		return nil, &inventory.ValidationError{Field: "location", Reason: "cannot filter by location and unassigned at once"}
	}

	limit := listLimit(opts)
	var afterCreated *time.Time
	afterID := uuid.Nil
	if opts.Cursor != "" {
		cur, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		afterCreated, afterID = cur.Created, cur.ID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+containerColumns+` FROM containers
		WHERE ($1::uuid IS NULL OR location = $1)
		  AND (NOT $2 OR location IS NULL)
		  AND ($3::timestamptz IS NULL OR (created, uuid) > ($3, $4))
		ORDER BY created, uuid
		LIMIT $5
	`, filter.Location, filter.Unassigned, afterCreated, afterID, limit)
	if err != nil {
		return nil, storeErr("list containers", err)
	}
	defer rows.Close()

	page := &Page[inventory.Container]{}
	for rows.Next() {
		var c inventory.Container
		if err := rows.Scan(&c.ID, &c.Created, &c.Updated, &c.Name, &c.Location); err != nil {
			return nil, storeErr("list containers", err)
		}
		page.Entities = append(page.Entities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list containers", err)
	}

	if len(page.Entities) == limit {
		last := page.Entities[len(page.Entities)-1]
		created := last.Created
		page.NextCursor = (&Cursor{Created: &created, ID: last.ID}).Encode()
		page.HasMore = true
	}
	return page, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, filter ItemFilter, opts ListOptions) (*Page[inventory.Item], error) {
	limit := listLimit(opts)
	var afterCreated *time.Time
	afterID := uuid.Nil
	if opts.Cursor != "" {
		cur, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		afterCreated, afterID = cur.Created, cur.ID
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE ($1::uuid IS NULL OR container = $1)
		  AND ($2::timestamptz IS NULL OR (created, uuid) > ($2, $3))
		ORDER BY created, uuid
		LIMIT $4
	`, filter.Container, afterCreated, afterID, limit)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	defer rows.Close()

	page := &Page[inventory.Item]{}
	for rows.Next() {
		var i inventory.Item
		if err := rows.Scan(&i.ID, &i.Created, &i.Updated, &i.Name, &i.Description, &i.Quantity, &i.Container); err != nil {
			return nil, storeErr("list items", err)
		}
		page.Entities = append(page.Entities, i)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list items", err)
	}

	if len(page.Entities) == limit {
		last := page.Entities[len(page.Entities)-1]
		created := last.Created
		page.NextCursor = (&Cursor{Created: &created, ID: last.ID}).Encode()
		page.HasMore = true
	}
	return page, nil
}

// --- Updates ---

func (s *PostgresStore) UpdateLocation(ctx context.Context, id uuid.UUID, p inventory.UpdateLocationParams) (*inventory.Location, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	l, err := scanLocation(s.pool.QueryRow(ctx, `
		UPDATE locations SET name = COALESCE($2, name)
		WHERE uuid = $1
		RETURNING `+locationColumns,
		id, p.Name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
		}
		return nil, storeErr("update location", err)
	}
	return l, nil
}

func (s *PostgresStore) UpdateContainer(ctx context.Context, id uuid.UUID, p inventory.UpdateContainerParams) (*inventory.Container, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var c *inventory.Container
	err := s.inTx(ctx, "update container", func(ctx context.Context, tx pgx.Tx) error {
		if p.Location != nil {
			if err := requireLocation(ctx, tx, *p.Location); err != nil {
				return err
			}
		}
		var err error
		c, err = scanContainer(tx.QueryRow(ctx, `
			UPDATE containers SET
				name = COALESCE($2, name),
				location = CASE
					WHEN $4 THEN NULL
					WHEN $3::uuid IS NOT NULL THEN $3
					ELSE location
				END,
				updated = now()
			WHERE uuid = $1
			RETURNING `+containerColumns,
			id, p.Name, p.Location, p.ClearLocation,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
		}
		return err
	})
	if err != nil {
		if isFKViolation(err) && p.Location != nil {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: *p.Location}
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, id uuid.UUID, p inventory.UpdateItemParams) (*inventory.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var i *inventory.Item
	err := s.inTx(ctx, "update item", func(ctx context.Context, tx pgx.Tx) error {
		if p.Container != nil {
			if err := requireContainer(ctx, tx, *p.Container); err != nil {
				return err
			}
		}
		var err error
		i, err = scanItem(tx.QueryRow(ctx, `
			UPDATE items SET
				name = COALESCE($2, name),
				description = COALESCE($3, description),
				quantity = COALESCE($4, quantity),
				container = COALESCE($5, container),
				updated = now()
			WHERE uuid = $1
			RETURNING `+itemColumns,
			id, p.Name, p.Description, p.Quantity, p.Container,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
		}
		return err
	})
	if err != nil {
		if isFKViolation(err) && p.Container != nil {
			return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: *p.Container}
		}
		return nil, err
	}
	return i, nil
}

// --- Deletes ---

func (s *PostgresStore) DeleteLocation(ctx context.Context, id uuid.UUID, cascade bool) error {
	return s.inTx(ctx, "delete location", func(ctx context.Context, tx pgx.Tx) error {
		// Lock the row so concurrent deletes serialize; the loser sees no
		// row after the winner commits and reports NotFound.
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT uuid FROM locations WHERE uuid = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
		}
		if err != nil {
			return err
		}

		// Phase one: size the affected set.
		var dependents int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM containers WHERE location = $1`, id).Scan(&dependents); err != nil {
			return err
		}
		if dependents > 0 && !cascade {
			return &inventory.ConflictError{Kind: inventory.KindLocation, ID: id, Dependents: dependents}
		}

		// Phase two: one batch mutation. A location is soft grouping, so
		// cascade unassigns its containers; their items are untouched.
		if dependents > 0 {
			if _, err := tx.Exec(ctx, `UPDATE containers SET location = NULL, updated = now() WHERE location = $1`, id); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM locations WHERE uuid = $1`, id)
		return err
	})
}

func (s *PostgresStore) DeleteContainer(ctx context.Context, id uuid.UUID, cascade bool) error {
	return s.inTx(ctx, "delete container", func(ctx context.Context, tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT uuid FROM containers WHERE uuid = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
		}
		if err != nil {
			return err
		}

		var dependents int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE container = $1`, id).Scan(&dependents); err != nil {
			return err
		}
		if dependents > 0 && !cascade {
			return &inventory.ConflictError{Kind: inventory.KindContainer, ID: id, Dependents: dependents}
		}

		// Containers own their items, so cascade is a hard delete.
		if dependents > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM items WHERE container = $1`, id); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM containers WHERE uuid = $1`, id)
		return err
	})
}

func (s *PostgresStore) DeleteItem(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE uuid = $1`, id)
	if err != nil {
		return storeErr("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		return &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
	}
	return nil
}

// --- Totals ---

func (s *PostgresStore) ContainerTotals(ctx context.Context, id uuid.UUID) (*inventory.ContainerTotals, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// One statement, one snapshot: the left join makes an empty container
	// report zeros while a missing one reports no row at all.
	var t inventory.ContainerTotals
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(i.uuid), COALESCE(SUM(i.quantity), 0)
		FROM containers c
		LEFT JOIN items i ON i.container = c.uuid
		WHERE c.uuid = $1
		GROUP BY c.uuid
	`, id).Scan(&t.ItemCount, &t.TotalQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindContainer, ID: id}
		}
		return nil, storeErr("container totals", err)
	}
	return &t, nil
}

func (s *PostgresStore) LocationTotals(ctx context.Context, id uuid.UUID) (*inventory.LocationTotals, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var t inventory.LocationTotals
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT c.uuid), COUNT(i.uuid), COALESCE(SUM(i.quantity), 0)
		FROM locations l
		LEFT JOIN containers c ON c.location = l.uuid
		LEFT JOIN items i ON i.container = c.uuid
		WHERE l.uuid = $1
		GROUP BY l.uuid
	`, id).Scan(&t.ContainerCount, &t.ItemCount, &t.TotalQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindLocation, ID: id}
		}
		return nil, storeErr("location totals", err)
	}
	return &t, nil
}

// isFKViolation reports whether err is the backstop foreign-key constraint
// firing under a race the in-transaction existence checks could not see.
func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
