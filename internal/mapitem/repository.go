package mapitem

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/shared/database"
)

type Repository struct {
	db        *database.DB
	logger    *slog.Logger
	batchSize int
}

func NewRepository(db *database.DB, logger *slog.Logger, batchSize int) *Repository {
	logger.Debug("Initializing map item repository")

	if batchSize < 1 {
		batchSize = 100
	}

	return &Repository{
		db:        db,
		logger:    logger,
		batchSize: batchSize,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

const selectItems = `
	SELECT m.id, m.owner_id, m.group_id, m.path, m.parent_id, m.item_type, m.visibility,
	       m.content_ref_id, m.template_name, m.created_at, m.updated_at,
	       b.id, b.title, b.content, b.preview, b.link, b.origin_id, b.created_at, b.updated_at
	FROM map_items m
	JOIN base_items b ON b.id = m.content_ref_id`

func scanItem(scanner interface{ Scan(dest ...any) error }) (MapItem, error) {
	var (
		item       MapItem
		path       string
		itemType   string
		visibility string
	)
	err := scanner.Scan(
		&item.ID,
		&item.Coords.OwnerID,
		&item.Coords.GroupID,
		&path,
		&item.ParentID,
		&itemType,
		&visibility,
		&item.ContentRefID,
		&item.TemplateName,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Ref.ID,
		&item.Ref.Title,
		&item.Ref.Content,
		&item.Ref.Preview,
		&item.Ref.Link,
		&item.Ref.OriginID,
		&item.Ref.CreatedAt,
		&item.Ref.UpdatedAt,
	)
	if err != nil {
		return MapItem{}, err
	}

	item.Coords.Path, err = coords.ParsePath(path)
	if err != nil {
		return MapItem{}, fmt.Errorf("map item %d has a corrupt path %q: %w", item.ID, path, err)
	}
	item.CoordID = coords.Encode(item.Coords)
	item.ItemType = ItemType(itemType)
	item.Visibility = access.Visibility(visibility)
	return item, nil
}

func (r *Repository) queryItems(ctx context.Context, exec database.Executor, logger *slog.Logger, query string, args []interface{}) ([]MapItem, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to query map items", "error", err)
		return nil, fmt.Errorf("failed to query map items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var items []MapItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			logger.Error("Failed to scan map item row", "error", err)
			return nil, fmt.Errorf("failed to scan map item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating map items: %w", err)
	}

	return items, nil
}

func (r *Repository) queryItem(ctx context.Context, requester access.Requester, exec database.Executor, logger *slog.Logger, query string, args []interface{}) (*MapItem, error) {
	item, err := scanItem(exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Map item not found")
			return nil, nil
		}
		logger.Error("Database error getting map item", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !access.CanRead(requester, item.Owner(), item.Visibility) {
		logger.Debug("Map item hidden from requester", "requester", requester.String())
		return nil, nil
	}
	return &item, nil
}

// GetByID returns the item, or nil when it is absent or not visible to the requester
func (r *Repository) GetByID(ctx context.Context, requester access.Requester, id int, tx *database.Tx) (*MapItem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "get_by_id", "item_id", id)

	args := database.NewArgs(exec.Driver())
	query := selectItems + " WHERE m.id = " + args.Add(id)
	return r.queryItem(ctx, requester, exec, logger, query, args.Values())
}

// GetByCoords returns the item, or nil when it is absent or not visible to the requester
func (r *Repository) GetByCoords(ctx context.Context, requester access.Requester, c coords.Coord, tx *database.Tx) (*MapItem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "get_by_coords", "coords", coords.Encode(c))

	args := database.NewArgs(exec.Driver())
	query := selectItems + " WHERE m.owner_id = " + args.Add(c.OwnerID) +
		" AND m.group_id = " + args.Add(c.GroupID) +
		" AND m.path = " + args.Add(coords.FormatPath(c.Path))
	return r.queryItem(ctx, requester, exec, logger, query, args.Values())
}

// GetByIDs returns the visible items among ids, ordered by depth then path
func (r *Repository) GetByIDs(ctx context.Context, requester access.Requester, ids []int, tx *database.Tx) ([]MapItem, error) {
	if len(ids) == 0 {
		return []MapItem{}, nil
	}

	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "get_by_ids", "count", len(ids))

	var items []MapItem
	for _, window := range database.Chunk(len(ids), r.batchSize) {
		args := database.NewArgs(exec.Driver())
		placeholders := make([]string, 0, window[1]-window[0])
		for _, id := range ids[window[0]:window[1]] {
			placeholders = append(placeholders, args.Add(id))
		}

		query := selectItems + " WHERE m.id IN (" + strings.Join(placeholders, ", ") + ") ORDER BY m.depth, m.path"
		chunk, err := r.queryItems(ctx, exec, logger, query, args.Values())
		if err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}

	// chunks are each ordered; the merged slice is not
	sort.SliceStable(items, func(i, j int) bool {
		if di, dj := items[i].Coords.Depth(), items[j].Coords.Depth(); di != dj {
			return di < dj
		}
		return coords.FormatPath(items[i].Coords.Path) < coords.FormatPath(items[j].Coords.Path)
	})

	return access.Filter(requester, items), nil
}

// subtreePredicate restricts rows to the subtree rooted at c. An empty path
// covers the whole map, so no path condition is needed.
func subtreePredicate(args *database.Args, alias string, c coords.Coord) string {
	predicate := alias + "owner_id = " + args.Add(c.OwnerID) + " AND " + alias + "group_id = " + args.Add(c.GroupID)
	if len(c.Path) == 0 {
		return predicate
	}
	prefix := coords.FormatPath(c.Path)
	return predicate + " AND (" + alias + "path = " + args.Add(prefix) + " OR " + alias + "path LIKE " + args.Add(prefix+",%") + ")"
}

// GetDescendants scans the subtree rooted at c by path prefix. Composition
// children are always part of the scan; callers trim them if needed.
func (r *Repository) GetDescendants(ctx context.Context, requester access.Requester, c coords.Coord, opts DescendantOptions, tx *database.Tx) ([]MapItem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With(
		"component", "map_item_repository",
		"operation", "get_descendants",
		"coords", coords.Encode(c),
		"include_self", opts.IncludeSelf,
		"max_depth", opts.MaxDepth,
	)
	logger.Debug("Scanning descendants")

	args := database.NewArgs(exec.Driver())
	query := selectItems + " WHERE " + subtreePredicate(args, "m.", c)

	minDepth := len(c.Path) + 1
	if opts.IncludeSelf {
		minDepth = len(c.Path)
	}
	if opts.MinDepth > minDepth {
		minDepth = opts.MinDepth
	}
	query += " AND m.depth >= " + args.Add(minDepth)
	if opts.MaxDepth > 0 {
		query += " AND m.depth <= " + args.Add(opts.MaxDepth)
	}
	query += " ORDER BY m.depth, m.path"

	items, err := r.queryItems(ctx, exec, logger, query, args.Values())
	if err != nil {
		return nil, err
	}

	visible := access.Filter(requester, items)
	logger.Debug("Descendants retrieved", "count", len(items), "visible", len(visible))
	return visible, nil
}

// GetChildren returns the direct children of c, structural and composition alike
func (r *Repository) GetChildren(ctx context.Context, requester access.Requester, c coords.Coord, tx *database.Tx) ([]MapItem, error) {
	return r.GetDescendants(ctx, requester, c, DescendantOptions{MaxDepth: len(c.Path) + 1}, tx)
}

// CountDescendants counts rows in the subtree rooted at c regardless of visibility
func (r *Repository) CountDescendants(ctx context.Context, c coords.Coord, includeSelf bool, tx *database.Tx) (int, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "count_descendants", "coords", coords.Encode(c))

	args := database.NewArgs(exec.Driver())
	query := "SELECT COUNT(*) FROM map_items WHERE " + subtreePredicate(args, "", c)
	if !includeSelf {
		query += " AND depth > " + args.Add(len(c.Path))
	}

	var count int
	if err := exec.QueryRowContext(ctx, query, args.Values()...).Scan(&count); err != nil {
		logger.Error("Failed to count descendants", "error", err)
		return 0, fmt.Errorf("failed to count descendants: %w", err)
	}
	return count, nil
}

// GetAncestors walks parent links from item up to its root and returns them
// root first. The walk never takes more than maxHops steps; paths shrink by
// one segment per hop so a well-formed tree ends well before that.
func (r *Repository) GetAncestors(ctx context.Context, requester access.Requester, item MapItem, maxHops int, tx *database.Tx) ([]MapItem, error) {
	logger := r.logger.With("component", "map_item_repository", "operation", "get_ancestors", "item_id", item.ID)

	var chain []MapItem
	parentID := item.ParentID
	for hops := 0; parentID != nil; hops++ {
		if hops >= maxHops {
			logger.Warn("Ancestor walk hit the hop limit", "max_hops", maxHops)
			return nil, fmt.Errorf("ancestor walk for item %d exceeded %d hops", item.ID, maxHops)
		}

		parent, err := r.GetByID(ctx, access.System(), *parentID, tx)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			logger.Warn("Dangling parent reference", "parent_id", *parentID)
			break
		}
		chain = append(chain, *parent)
		parentID = parent.ParentID
	}

	ancestors := make([]MapItem, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		ancestors = append(ancestors, chain[i])
	}

	return access.Filter(requester, ancestors), nil
}

// GetRoots lists the root tiles of every map an owner has
func (r *Repository) GetRoots(ctx context.Context, requester access.Requester, ownerID string, tx *database.Tx) ([]MapItem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "get_roots", "owner_id", ownerID)

	args := database.NewArgs(exec.Driver())
	query := selectItems + " WHERE m.owner_id = " + args.Add(ownerID) + " AND m.path = '' ORDER BY m.group_id"

	items, err := r.queryItems(ctx, exec, logger, query, args.Values())
	if err != nil {
		return nil, err
	}
	return access.Filter(requester, items), nil
}

// Create inserts a single row
func (r *Repository) Create(ctx context.Context, item NewMapItem, tx *database.Tx) (*MapItem, error) {
	created, err := r.CreateBatch(ctx, []NewMapItem{item}, tx)
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// CreateBatch inserts rows in chunks and returns them in input order without Ref.
// Rows of one call may reference each other only through ids that already exist.
func (r *Repository) CreateBatch(ctx context.Context, items []NewMapItem, tx *database.Tx) ([]MapItem, error) {
	if len(items) == 0 {
		return []MapItem{}, nil
	}

	exec := r.getExecutor(tx)
	logger := r.logger.With(
		"component", "map_item_repository",
		"operation", "create_batch",
		"count", len(items),
	)
	logger.Debug("Creating map items in batch")

	now := time.Now().UTC()
	ids := make(map[string]int, len(items))

	for _, window := range database.Chunk(len(items), r.batchSize) {
		args := database.NewArgs(exec.Driver())
		values := make([]string, 0, window[1]-window[0])
		for _, item := range items[window[0]:window[1]] {
			values = append(values, "("+args.List(
				item.Coords.OwnerID,
				item.Coords.GroupID,
				coords.FormatPath(item.Coords.Path),
				len(item.Coords.Path),
				item.ParentID,
				string(item.ItemType),
				string(item.Visibility),
				item.ContentRefID,
				item.TemplateName,
				now,
				now,
			)+")")
		}

		query := `
			INSERT INTO map_items (owner_id, group_id, path, depth, parent_id, item_type, visibility, content_ref_id, template_name, created_at, updated_at)
			VALUES ` + strings.Join(values, ", ") + `
			RETURNING id, owner_id, group_id, path`

		if err := r.collectInsertedIDs(ctx, exec, logger, query, args.Values(), ids); err != nil {
			return nil, err
		}
	}

	created := make([]MapItem, len(items))
	for i, item := range items {
		key := coords.Encode(item.Coords)
		id, ok := ids[key]
		if !ok {
			return nil, fmt.Errorf("insert did not return an id for %s", key)
		}
		created[i] = MapItem{
			ID:           id,
			ParentID:     item.ParentID,
			Coords:       coords.New(item.Coords.OwnerID, item.Coords.GroupID, item.Coords.Path...),
			CoordID:      key,
			ItemType:     item.ItemType,
			Visibility:   item.Visibility,
			ContentRefID: item.ContentRefID,
			TemplateName: item.TemplateName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	logger.Debug("Map items batch created successfully", "count", len(created))
	return created, nil
}

func (r *Repository) collectInsertedIDs(ctx context.Context, exec database.Executor, logger *slog.Logger, query string, args []interface{}, ids map[string]int) error {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to batch create map items", "error", err)
		return fmt.Errorf("failed to batch create map items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			id      int
			ownerID string
			groupID int
			path    string
		)
		if err := rows.Scan(&id, &ownerID, &groupID, &path); err != nil {
			logger.Error("Failed to scan inserted map item", "error", err)
			return fmt.Errorf("failed to scan inserted map item: %w", err)
		}
		ids[ownerID+","+strconv.Itoa(groupID)+":"+path] = id
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return fmt.Errorf("failed to batch create map items: %w", err)
	}
	return nil
}

// StageItems parks rows on placeholder paths ("~<id>") that cannot collide
// with real paths, freeing their positions for a later RelocateItems.
func (r *Repository) StageItems(ctx context.Context, ids []int, tx *database.Tx) error {
	if len(ids) == 0 {
		return nil
	}

	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "stage_items", "count", len(ids))

	for _, window := range database.Chunk(len(ids), r.batchSize) {
		args := database.NewArgs(exec.Driver())
		placeholders := make([]string, 0, window[1]-window[0])
		for _, id := range ids[window[0]:window[1]] {
			placeholders = append(placeholders, args.Add(id))
		}

		query := "UPDATE map_items SET path = '~' || CAST(id AS TEXT) WHERE id IN (" + strings.Join(placeholders, ", ") + ")"
		if _, err := exec.ExecContext(ctx, query, args.Values()...); err != nil {
			logger.Error("Failed to stage map items", "error", err)
			return fmt.Errorf("failed to stage map items: %w", err)
		}
	}

	logger.Debug("Map items staged")
	return nil
}

// RelocateItems rewrites path and depth of many rows with one CASE update per chunk
func (r *Repository) RelocateItems(ctx context.Context, relocations []Relocation, tx *database.Tx) (int, error) {
	if len(relocations) == 0 {
		return 0, nil
	}

	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "relocate_items", "count", len(relocations))
	logger.Debug("Relocating map items")

	now := time.Now().UTC()
	var affected int64
	for _, window := range database.Chunk(len(relocations), r.batchSize) {
		chunk := relocations[window[0]:window[1]]
		args := database.NewArgs(exec.Driver())

		var pathCase, depthCase strings.Builder
		for _, rel := range chunk {
			pathCase.WriteString(" WHEN " + args.Add(rel.ID) + " THEN " + args.Add(coords.FormatPath(rel.Path)))
		}
		for _, rel := range chunk {
			depthCase.WriteString(" WHEN " + args.Add(rel.ID) + " THEN CAST(" + args.Add(len(rel.Path)) + " AS INTEGER)")
		}
		updatedAt := args.Add(now)

		placeholders := make([]string, len(chunk))
		for i, rel := range chunk {
			placeholders[i] = args.Add(rel.ID)
		}

		query := "UPDATE map_items SET path = CASE id" + pathCase.String() + " END" +
			", depth = CASE id" + depthCase.String() + " END" +
			", updated_at = " + updatedAt +
			" WHERE id IN (" + strings.Join(placeholders, ", ") + ")"

		result, err := exec.ExecContext(ctx, query, args.Values()...)
		if err != nil {
			logger.Error("Failed to relocate map items", "error", err)
			return 0, fmt.Errorf("failed to relocate map items: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read relocated row count: %w", err)
		}
		affected += n
	}

	logger.Debug("Map items relocated", "affected", affected)
	return int(affected), nil
}

// UpdateParent points a row at a new parent
func (r *Repository) UpdateParent(ctx context.Context, id int, parentID *int, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "update_parent", "item_id", id)

	args := database.NewArgs(exec.Driver())
	query := "UPDATE map_items SET parent_id = " + args.Add(parentID) + ", updated_at = " + args.Add(time.Now().UTC()) + " WHERE id = " + args.Add(id)
	if _, err := exec.ExecContext(ctx, query, args.Values()...); err != nil {
		logger.Error("Failed to update parent", "error", err)
		return fmt.Errorf("failed to update parent: %w", err)
	}
	return nil
}

// UpdateAttributes applies a non-structural patch
func (r *Repository) UpdateAttributes(ctx context.Context, id int, patch AttributePatch, tx *database.Tx) error {
	if patch.IsEmpty() {
		return nil
	}

	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "update_attributes", "item_id", id)

	args := database.NewArgs(exec.Driver())
	var sets []string
	if patch.ItemType != nil {
		sets = append(sets, "item_type = "+args.Add(string(*patch.ItemType)))
	}
	if patch.Visibility != nil {
		sets = append(sets, "visibility = "+args.Add(string(*patch.Visibility)))
	}
	if patch.TemplateName != nil {
		var name interface{}
		if *patch.TemplateName != "" {
			name = *patch.TemplateName
		}
		sets = append(sets, "template_name = "+args.Add(name))
	}
	sets = append(sets, "updated_at = "+args.Add(time.Now().UTC()))

	query := "UPDATE map_items SET " + strings.Join(sets, ", ") + " WHERE id = " + args.Add(id)
	if _, err := exec.ExecContext(ctx, query, args.Values()...); err != nil {
		logger.Error("Failed to update map item attributes", "error", err)
		return fmt.Errorf("failed to update map item attributes: %w", err)
	}
	return nil
}

// DeleteSubtree removes c and every descendant in one statement
func (r *Repository) DeleteSubtree(ctx context.Context, c coords.Coord, tx *database.Tx) (int, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "delete_subtree", "coords", coords.Encode(c))

	args := database.NewArgs(exec.Driver())
	n, err := r.deleteWhere(ctx, exec, subtreePredicate(args, "", c), args)
	if err != nil {
		logger.Error("Failed to delete subtree", "error", err)
		return 0, fmt.Errorf("failed to delete subtree: %w", err)
	}

	logger.Debug("Subtree deleted", "deleted", n)
	return n, nil
}

// DeleteSubtrees removes several sibling subtrees of one map in a single statement
func (r *Repository) DeleteSubtrees(ctx context.Context, ownerID string, groupID int, roots [][]coords.Direction, tx *database.Tx) (int, error) {
	if len(roots) == 0 {
		return 0, nil
	}

	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "map_item_repository", "operation", "delete_subtrees", "owner_id", ownerID, "group_id", groupID, "roots", len(roots))

	// placeholders are positional on sqlite, so args follow the SQL text order
	args := database.NewArgs(exec.Driver())
	scope := "owner_id = " + args.Add(ownerID) + " AND group_id = " + args.Add(groupID)

	predicates := make([]string, len(roots))
	for i, root := range roots {
		prefix := coords.FormatPath(root)
		predicates[i] = "path = " + args.Add(prefix) + " OR path LIKE " + args.Add(prefix+",%")
	}

	predicate := scope + " AND (" + strings.Join(predicates, " OR ") + ")"

	n, err := r.deleteWhere(ctx, exec, predicate, args)
	if err != nil {
		logger.Error("Failed to delete subtrees", "error", err)
		return 0, fmt.Errorf("failed to delete subtrees: %w", err)
	}

	logger.Debug("Subtrees deleted", "deleted", n)
	return n, nil
}

// deleteWhere counts before deleting. SQLite leaves rows removed by a
// cascading foreign key out of RowsAffected, so the count is taken up front.
func (r *Repository) deleteWhere(ctx context.Context, exec database.Executor, predicate string, args *database.Args) (int, error) {
	var count int
	if err := exec.QueryRowContext(ctx, "SELECT COUNT(*) FROM map_items WHERE "+predicate, args.Values()...).Scan(&count); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if _, err := exec.ExecContext(ctx, "DELETE FROM map_items WHERE "+predicate, args.Values()...); err != nil {
		return 0, err
	}
	return count, nil
}
