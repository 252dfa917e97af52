package storage

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

const postSelect = `
	select p.id,
		   p.title,
		   p.excerpt,
		   p.body,
		   p.read_time_minutes,
		   p.created_at,
		   coalesce(array_agg(t.name order by t.name) filter (where t.name is not null), '{}') as tags
	  from posts p
	  left join post_tags pt
		on pt.post_id = p.id
	  left join tags t
		on t.id = pt.tag_id`

const postGroup = " group by p.id, p.title, p.excerpt, p.body, p.read_time_minutes, p.created_at"

func scanPost(row rowScanner) (Post, error) {
	var (
		p    Post
		tags pgtype.TextArray
	)
	err := row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Body, &p.ReadTimeMinutes, &p.CreatedAt, &tags)
	if err != nil {
		return Post{}, err
	}
	p.Tags = make([]string, 0, len(tags.Elements))
	if err := tags.AssignTo(&p.Tags); err != nil {
		return Post{}, err
	}
	return p, nil
}

// Posts returns the whole catalog, newest first
func (s *Store) Posts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.Query(ctx, postSelect+postGroup+" order by p.created_at desc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

func (s *Store) PostByID(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRow(ctx, postSelect+" where p.id = $1"+postGroup, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// CreatePost inserts the article and attaches its normalized tag set in one
// transaction
func (s *Store) CreatePost(ctx context.Context, in PostInput) (Post, error) {
	s.logger.Debugf("Creating post (%s)", in.Title)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Post{}, err
	}
	defer tx.Rollback(context.Background())

	var id int64
	sql := "insert into posts (title, excerpt, body, read_time_minutes) values ($1, $2, $3, $4) returning id"
	err = tx.QueryRow(ctx, sql, in.Title, in.Excerpt, in.Body, in.ReadTimeMinutes).Scan(&id)
	if err != nil {
		return Post{}, err
	}

	if err = s.attachTags(ctx, tx, id, in.TagsInput); err != nil {
		return Post{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Post{}, err
	}

	return s.PostByID(ctx, id)
}

// UpdatePost rewrites the article fields; when TagsInput is non-empty the
// tag set is replaced as well
func (s *Store) UpdatePost(ctx context.Context, id int64, in PostInput) (Post, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Post{}, err
	}
	defer tx.Rollback(context.Background())

	sql := "update posts set title = $2, excerpt = $3, body = $4, read_time_minutes = $5 where id = $1"
	tag, err := tx.Exec(ctx, sql, id, in.Title, in.Excerpt, in.Body, in.ReadTimeMinutes)
	if err != nil {
		return Post{}, err
	}
	if tag.RowsAffected() == 0 {
		return Post{}, ErrPostNotFound
	}

	if in.TagsInput != "" {
		if _, err = tx.Exec(ctx, "delete from post_tags where post_id = $1", id); err != nil {
			return Post{}, err
		}
		if err = s.attachTags(ctx, tx, id, in.TagsInput); err != nil {
			return Post{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return Post{}, err
	}

	return s.PostByID(ctx, id)
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "delete from posts where id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// attachTags upserts each normalized tag name and bulk-links them to the post
func (s *Store) attachTags(ctx context.Context, tx pgx.Tx, postID int64, tagsInput string) error {
	names := normalizeTagNames(tagsInput)
	if len(names) == 0 {
		return nil
	}

	rows := make([]postTagRow, 0, len(names))
	for _, name := range names {
		var tagID int64
		sql := `insert into tags (name) values ($1)
				on conflict (name) do update set name = excluded.name
				returning id`
		if err := tx.QueryRow(ctx, sql, name).Scan(&tagID); err != nil {
			return err
		}
		rows = append(rows, postTagRow{postID: postID, tagID: tagID})
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"post_tags"}, []string{"post_id", "tag_id"}, copyFromPostTags(rows))
	return err
}

// normalizeTagNames splits a comma-separated tag string, trims entries,
// capitalizes them and drops empties and case-insensitive duplicates
func normalizeTagNames(input string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, raw := range strings.Split(input, ",") {
		name := capitalize(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
